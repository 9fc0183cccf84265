package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Refunds implements the refund request, approval and rejection flow.
// Approval is the exact inverse of settlement.
type Refunds struct {
	base
	inventory *Inventory
	wallets   *WalletLedger
	effects   *effects
}

const maxRefundReason = 500

// refundable checks the conditions shared by request and approval: the
// event has not started and no ticket of the order has been scanned.
func (r *Refunds) refundable(ctx context.Context, tx repository.Tx, o model.Order, ev model.Event) error {
	if ev.Started(r.now()) {
		return newError(KindEventStarted, "event %d has already started", ev.ID)
	}
	used, err := tx.CountUsedTicketsByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	if used > 0 {
		return newError(KindTicketAlreadyUsed, "%d ticket(s) of order %d were already scanned", used, o.ID)
	}
	return nil
}

func (r *Refunds) eventOf(ctx context.Context, tx repository.Tx, ticketClassID uint64, lock bool) (model.TicketClass, model.Event, error) {
	var (
		tc  model.TicketClass
		err error
	)
	if lock {
		tc, err = tx.LockTicketClass(ctx, ticketClassID)
	} else {
		tc, err = tx.GetTicketClass(ctx, ticketClassID)
	}
	if err != nil {
		return tc, model.Event{}, fromRepo(err, "ticket class")
	}
	ev, err := tx.GetEvent(ctx, tc.EventID)
	if err != nil {
		return tc, ev, fromRepo(err, "event")
	}
	return tc, ev, nil
}

// RequestRefund moves a paid order owned by buyerID to refund_requested.
func (r *Refunds) RequestRefund(ctx context.Context, buyerID, orderID uint64, reason string) (model.Order, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxRefundReason {
		return model.Order{}, newError(KindValidation, "reason must be at most %d characters", maxRefundReason)
	}
	var out model.Order
	err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order")
		}
		if o.UserID != buyerID {
			return newError(KindNotFound, "order not found")
		}
		switch o.Status {
		case model.OrderPaid:
		case model.OrderPending:
			return newError(KindNotPaid, "order %d has not been paid", o.ID)
		case model.OrderRefundRequested:
			return newError(KindInvalidState, "refund for order %d already requested", o.ID)
		default:
			return newError(KindInvalidState, "order %d is %s", o.ID, o.Status)
		}
		_, ev, err := r.eventOf(ctx, tx, o.TicketClassID, false)
		if err != nil {
			return err
		}
		if err := r.refundable(ctx, tx, o, ev); err != nil {
			return err
		}
		o.Status = model.OrderRefundRequested
		o.RefundReason = reason
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	metrics.Refund("request", resultLabel(err))
	if err != nil {
		return model.Order{}, err
	}
	r.log.Info("refund requested", zap.Uint64("order_id", out.ID), zap.Uint64("user_id", buyerID))
	return out, nil
}

// ApproveRefund reverses a settled order on behalf of the event's
// organizer: the payment becomes refunded, stock is released, quantity
// tickets are soft-cancelled, wallet credits are reversed and the order
// becomes refunded.
//
// Tickets are cancelled newest first among the buyer's uncancelled
// tickets of the same class.
func (r *Refunds) ApproveRefund(ctx context.Context, organizerID, orderID uint64) (model.Order, error) {
	var (
		out model.Order
		ev  model.Event
	)
	err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order")
		}
		var tc model.TicketClass
		if tc, ev, err = r.eventOf(ctx, tx, o.TicketClassID, true); err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return newError(KindForbidden, "order %d is not for one of your events", o.ID)
		}
		if o.Status != model.OrderRefundRequested {
			return newError(KindInvalidState, "order %d is %s, not refund_requested", o.ID, o.Status)
		}
		if err := r.refundable(ctx, tx, o, ev); err != nil {
			return err
		}

		p, err := tx.LockSuccessfulPayment(ctx, o.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindInvalidState, "order %d has no successful payment", o.ID)
		}
		if err != nil {
			return err
		}
		if err := tx.UpdatePaymentStatus(ctx, p.ID, model.PaymentRefunded); err != nil {
			return err
		}
		if _, err := r.inventory.Release(ctx, tx, tc.ID, o.Quantity); err != nil {
			return err
		}

		tickets, err := tx.LockCancellableTickets(ctx, o.UserID, tc.ID, o.Quantity)
		if err != nil {
			return err
		}
		if len(tickets) != o.Quantity {
			r.log.Error("refund cancels fewer tickets than ordered",
				zap.Uint64("order_id", o.ID), zap.Int("quantity", o.Quantity), zap.Int("found", len(tickets)))
		}
		ids := make([]uint64, len(tickets))
		for i, tk := range tickets {
			ids[i] = tk.ID
		}
		now := r.now()
		if err := tx.CancelTickets(ctx, ids, now); err != nil {
			return err
		}
		if _, err := r.wallets.ReverseForOrder(ctx, tx, o); err != nil {
			return err
		}

		o.Status = model.OrderRefunded
		o.RefundedAt = &now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	metrics.Refund("approve", resultLabel(err))
	if err != nil {
		return model.Order{}, err
	}
	r.log.Info("refund approved", zap.Uint64("order_id", out.ID), zap.Uint64("organizer_id", organizerID))
	r.effects.orderRefunded(ctx, out, ev)
	return out, nil
}

// RejectRefund returns a refund_requested order to paid and clears the
// buyer's reason.
func (r *Refunds) RejectRefund(ctx context.Context, organizerID, orderID uint64) (model.Order, error) {
	var out model.Order
	err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order")
		}
		_, ev, err := r.eventOf(ctx, tx, o.TicketClassID, false)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return newError(KindForbidden, "order %d is not for one of your events", o.ID)
		}
		if o.Status != model.OrderRefundRequested {
			return newError(KindInvalidState, "order %d is %s, not refund_requested", o.ID, o.Status)
		}
		o.Status = model.OrderPaid
		o.RefundReason = ""
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	metrics.Refund("reject", resultLabel(err))
	return out, err
}

// ListRefundRequests returns the pending refund requests on the
// organizer's events, newest first.
func (r *Refunds) ListRefundRequests(ctx context.Context, organizerID uint64) ([]model.Order, error) {
	var out []model.Order
	err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.ListOrdersByOrganizer(ctx, organizerID, model.OrderRefundRequested)
		return err
	})
	return out, err
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
