package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/notify"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
)

// effectTimeout bounds the post-commit work of one request.
const effectTimeout = 10 * time.Second

// effects runs the best-effort work that follows a committed settlement
// or refund: QR rendering, domain events and receipts.  Failures are
// logged and never reach the caller.
type effects struct {
	log       *zap.Logger
	currency  string
	renderer  Renderer
	publisher EventPublisher
	notifier  notify.Notifier
	directory Directory
}

// detach keeps request values but drops the request's cancellation so a
// client disconnect does not cut post-commit work short.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), effectTimeout)
}

func (f *effects) email(ctx context.Context, userID uint64) string {
	if f.directory == nil {
		return ""
	}
	addr, err := f.directory.EmailOf(ctx, userID)
	if err != nil {
		f.log.Warn("receipt address lookup failed", zap.Uint64("user_id", userID), zap.Error(err))
		return ""
	}
	return addr
}

func (f *effects) orderPaid(ctx context.Context, o model.Order, tc model.TicketClass, ev model.Event, tickets []model.Ticket) {
	ctx, cancel := detach(ctx)
	defer cancel()

	codes := make([]string, len(tickets))
	for i, tk := range tickets {
		codes[i] = tk.Code
		if err := f.renderer.Render(ctx, tk.Code); err != nil {
			f.log.Warn("scan code render failed", zap.Uint64("ticket_id", tk.ID), zap.Error(err))
		}
	}
	msg := queue.OrderPaidEvent{
		OrderID:          o.ID,
		UserID:           o.UserID,
		Email:            f.email(ctx, o.UserID),
		EventID:          ev.ID,
		EventTitle:       ev.Title,
		TicketClass:      tc.Name,
		Quantity:         o.Quantity,
		TotalAmount:      o.TotalAmount.StringFixed(money.Places),
		CommissionAmount: o.CommissionAmount.StringFixed(money.Places),
		OrganizerAmount:  o.OrganizerAmount.StringFixed(money.Places),
		Currency:         f.currency,
		TicketCodes:      codes,
	}
	if o.PaidAt != nil {
		msg.PaidAt = o.PaidAt.Format(time.RFC3339)
	}
	if f.publisher != nil {
		if err := f.publisher.PublishOrderPaid(ctx, msg); err != nil {
			f.log.Warn("publish order.paid failed", zap.Uint64("order_id", o.ID), zap.Error(err))
		}
		return
	}
	subject, body := msg.Receipt()
	f.send(ctx, msg.Email, subject, body, o.ID)
}

func (f *effects) orderRefunded(ctx context.Context, o model.Order, ev model.Event) {
	ctx, cancel := detach(ctx)
	defer cancel()

	msg := queue.OrderRefundedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Email:       f.email(ctx, o.UserID),
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount.StringFixed(money.Places),
		Currency:    f.currency,
	}
	if o.RefundedAt != nil {
		msg.RefundedAt = o.RefundedAt.Format(time.RFC3339)
	}
	if f.publisher != nil {
		if err := f.publisher.PublishOrderRefunded(ctx, msg); err != nil {
			f.log.Warn("publish order.refunded failed", zap.Uint64("order_id", o.ID), zap.Error(err))
		}
		return
	}
	subject, body := msg.Receipt()
	f.send(ctx, msg.Email, subject, body, o.ID)
}

func (f *effects) send(ctx context.Context, to, subject, body string, orderID uint64) {
	if f.notifier == nil || to == "" {
		return
	}
	if err := f.notifier.Send(ctx, to, subject, body); err != nil {
		f.log.Warn("receipt delivery failed", zap.Uint64("order_id", orderID), zap.Error(err))
	}
}
