package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/notify"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Renderer turns a scan code into a presentational image asset.
type Renderer interface {
	AssetRef(code string) string
	Render(ctx context.Context, code string) error
}

// EventPublisher publishes domain events after a commit.
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
	PublishOrderRefunded(ctx context.Context, ev queue.OrderRefundedEvent) error
}

// Directory resolves a user id to the address receipts are sent to.
type Directory interface {
	EmailOf(ctx context.Context, userID uint64) (string, error)
}

// Options wires the services together.  Store and CommissionRate are
// required (a zero rate means no commission); every other collaborator
// has a usable default.
type Options struct {
	Store          repository.Store
	Log            *zap.Logger
	Now            func() time.Time
	CommissionRate decimal.Decimal
	Currency       string
	Providers      *ProviderRegistry
	Renderer       Renderer
	Publisher      EventPublisher  // nil sends receipts directly through Notifier
	Notifier       notify.Notifier // nil disables direct receipts
	Directory      Directory       // nil disables receipts
	NewCode        func() string   // scan code generator
}

// Services groups the marketplace components.
type Services struct {
	Inventory  *Inventory
	Wallets    *WalletLedger
	Settlement *Settlement
	Refunds    *Refunds
	Scanner    *Scanner
	Catalog    *Catalog
	Payouts    *Payouts
	Views      *Views
}

// base holds what every component needs.
type base struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(opts Options) *Services {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Currency == "" {
		opts.Currency = "SSP"
	}
	if opts.Providers == nil {
		opts.Providers = NewProviderRegistry()
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRenderer{}
	}
	if opts.NewCode == nil {
		opts.NewCode = newScanCode
	}

	b := base{store: opts.Store, log: opts.Log, now: opts.Now}
	inv := &Inventory{log: opts.Log}
	wallets := &WalletLedger{base: b}
	fx := &effects{
		log:       opts.Log,
		currency:  opts.Currency,
		renderer:  opts.Renderer,
		publisher: opts.Publisher,
		notifier:  opts.Notifier,
		directory: opts.Directory,
	}
	return &Services{
		Inventory: inv,
		Wallets:   wallets,
		Settlement: &Settlement{
			base:      b,
			inventory: inv,
			wallets:   wallets,
			providers: opts.Providers,
			renderer:  opts.Renderer,
			effects:   fx,
			rate:      opts.CommissionRate,
			newCode:   opts.NewCode,
		},
		Refunds: &Refunds{base: b, inventory: inv, wallets: wallets, effects: fx},
		Scanner: &Scanner{base: b},
		Catalog: &Catalog{base: b},
		Payouts: &Payouts{base: b},
		Views:   &Views{base: b},
	}
}

// fromRepo converts repository sentinels into service errors.  what names
// the entity for the message.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return newError(KindNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrForbidden):
		return newError(KindForbidden, "%s belongs to another user", what)
	case errors.Is(err, repository.ErrConflict):
		return wrapError(KindInvalidState, err, "%s changed concurrently", what)
	}
	return err
}

type nopRenderer struct{}

func (nopRenderer) AssetRef(string) string               { return "" }
func (nopRenderer) Render(context.Context, string) error { return nil }
