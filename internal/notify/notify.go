// Package notify delivers best-effort messages to users: OTP codes and
// purchase or refund receipts.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
)

// Notifier sends a plain-text message to an address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPNotifier sends mail through an authenticated SMTP relay.
type SMTPNotifier struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPNotifier builds a notifier for cfg.  No connection is made until
// the first Send.
func NewSMTPNotifier(cfg config.MailConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPNotifier{client: c, from: cfg.From, fromName: cfg.FromName}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(n.fromName, n.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them.  It is
// used in development when no SMTP host is configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.Log.Info("notification", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// New picks the SMTP notifier when a host is configured and the logging
// notifier otherwise.
func New(cfg config.MailConfig, log *zap.Logger) (Notifier, error) {
	if cfg.Host == "" {
		return LogNotifier{Log: log}, nil
	}
	return NewSMTPNotifier(cfg)
}
