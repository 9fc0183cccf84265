// Package scancode renders ticket scan codes as QR images on local disk.
package scancode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeqown/go-qrcode"
)

const ext = ".jpeg"

// Renderer writes one JPEG QR image per code into Dir.  Images are
// addressed by BaseURL + "/" + code + ".jpeg".
type Renderer struct {
	Dir     string
	BaseURL string
}

func NewRenderer(dir, baseURL string) *Renderer {
	return &Renderer{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// AssetRef returns the public reference of a code's image.  It does not
// require the image to exist yet.
func (r *Renderer) AssetRef(code string) string {
	return r.BaseURL + "/" + code + ext
}

// Render encodes code into a QR image.  Existing images are left alone.
func (r *Renderer) Render(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(code, `/\`) || code == "" {
		return fmt.Errorf("scancode: invalid code %q", code)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("scancode: mkdir: %w", err)
	}
	path := filepath.Join(r.Dir, code+ext)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	qrc, err := qrcode.New(code)
	if err != nil {
		return fmt.Errorf("scancode: encode: %w", err)
	}
	if err := qrc.Save(path); err != nil {
		return fmt.Errorf("scancode: save %s: %w", path, err)
	}
	return nil
}
