package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Settlement creates orders and captures their payment.
type Settlement struct {
	base
	inventory *Inventory
	wallets   *WalletLedger
	providers *ProviderRegistry
	renderer  Renderer
	effects   *effects
	rate      decimal.Decimal
	newCode   func() string
}

// CaptureResult is the outcome of a capture.  AlreadyPaid is set when the
// order had been settled by an earlier call and Tickets are the ones
// minted then.
type CaptureResult struct {
	Order       model.Order
	Tickets     []model.Ticket
	AlreadyPaid bool
}

func newScanCode() string { return uuid.NewString() }

// CreateOrder quotes quantity tickets of a class for buyerID and records a
// pending order.  Stock is checked against a locked read but not reserved;
// reservation happens at capture.
func (s *Settlement) CreateOrder(ctx context.Context, buyerID, ticketClassID uint64, quantity int) (model.Order, error) {
	if quantity < 1 {
		return model.Order{}, newError(KindValidation, "quantity must be at least 1")
	}
	var o model.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tc, err := tx.LockTicketClass(ctx, ticketClassID)
		if err != nil {
			return fromRepo(err, "ticket class")
		}
		ev, err := tx.GetEvent(ctx, tc.EventID)
		if err != nil {
			return fromRepo(err, "event")
		}
		if ev.Started(s.now()) {
			return newError(KindEventStarted, "event %d has already started", ev.ID)
		}
		if avail := tc.Available(); quantity > avail {
			return newError(KindOutOfStock, "%d ticket(s) requested, %d available", quantity, avail)
		}
		total := money.Quote(tc.Price, quantity)
		commission, organizer := money.Split(total, s.rate)
		o = model.Order{
			UserID:           buyerID,
			TicketClassID:    tc.ID,
			Quantity:         quantity,
			TotalAmount:      total,
			CommissionAmount: commission,
			OrganizerAmount:  organizer,
			CommissionRate:   s.rate,
			Status:           model.OrderPending,
		}
		return tx.InsertOrder(ctx, &o)
	})
	if err != nil {
		return model.Order{}, err
	}
	metrics.OrderCreated()
	s.log.Info("order created", zap.Uint64("order_id", o.ID), zap.Uint64("user_id", buyerID),
		zap.Int("quantity", quantity), zap.String("total", o.TotalAmount.StringFixed(money.Places)))
	return o, nil
}

// CapturePayment settles a pending order: it charges the buyer through the
// named provider, records the payment, marks the order paid, reserves
// stock, mints one ticket per unit and credits the wallets, all in one
// transaction.  Capturing an order that is already paid returns its
// existing tickets.
//
// Locks are taken in the order: order, ticket class, wallet rows.
func (s *Settlement) CapturePayment(ctx context.Context, buyerID, orderID uint64, providerName, phone string) (CaptureResult, error) {
	start := time.Now()
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	provider, ok := s.providers.Get(providerName)
	if !ok {
		return CaptureResult{}, newError(KindValidation, "unknown payment provider %q", providerName)
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return CaptureResult{}, newError(KindValidation, "phone is required")
	}

	var (
		res       CaptureResult
		tc        model.TicketClass
		ev        model.Event
		chargeErr error
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order")
		}
		if o.UserID != buyerID {
			return newError(KindNotFound, "order not found")
		}
		switch o.Status {
		case model.OrderPaid, model.OrderRefundRequested:
			tickets, err := tx.ListTicketsByOrder(ctx, o.ID)
			if err != nil {
				return err
			}
			res = CaptureResult{Order: o, Tickets: tickets, AlreadyPaid: true}
			return nil
		case model.OrderRefunded:
			return newError(KindInvalidState, "order %d was refunded", o.ID)
		}

		if tc, err = tx.LockTicketClass(ctx, o.TicketClassID); err != nil {
			return fromRepo(err, "ticket class")
		}
		if avail := tc.Available(); o.Quantity > avail {
			return newError(KindOutOfStock, "%d ticket(s) requested, %d available", o.Quantity, avail)
		}
		if ev, err = tx.GetEvent(ctx, tc.EventID); err != nil {
			return fromRepo(err, "event")
		}

		charge, err := provider.Charge(ctx, ChargeRequest{
			OrderID:   o.ID,
			Amount:    o.TotalAmount,
			Phone:     phone,
			Reference: fmt.Sprintf("ORD-%d", o.ID),
		})
		if err != nil {
			chargeErr = err
			return wrapError(KindUpstreamFailure, err, "payment provider %s failed", providerName)
		}

		now := s.now()
		p := &model.Payment{
			OrderID:   o.ID,
			Provider:  providerName,
			Phone:     phone,
			Reference: charge.Reference,
			Amount:    o.TotalAmount,
			Status:    model.PaymentPending,
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.UpdatePaymentStatus(ctx, p.ID, model.PaymentSuccess); err != nil {
			return err
		}

		o.Status = model.OrderPaid
		o.PaidAt = &now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if tc, err = s.inventory.Reserve(ctx, tx, tc.ID, o.Quantity); err != nil {
			return err
		}

		minted := make([]*model.Ticket, o.Quantity)
		for i := range minted {
			code := s.newCode()
			minted[i] = &model.Ticket{
				Code:          code,
				OrderID:       o.ID,
				UserID:        o.UserID,
				TicketClassID: tc.ID,
				AssetRef:      s.renderer.AssetRef(code),
				CreatedAt:     now,
			}
		}
		if err := tx.InsertTickets(ctx, minted); err != nil {
			return err
		}
		if _, err := s.wallets.CreditForOrder(ctx, tx, o, ev.OrganizerID); err != nil {
			return err
		}

		tickets := make([]model.Ticket, len(minted))
		for i, t := range minted {
			tickets[i] = *t
		}
		res = CaptureResult{Order: o, Tickets: tickets}
		return nil
	})

	if chargeErr != nil {
		s.recordFailedPayment(ctx, orderID, providerName, phone, chargeErr)
	}
	if err != nil {
		metrics.Settlement(providerName, string(KindOf(err)), time.Since(start))
		return CaptureResult{}, err
	}
	if res.AlreadyPaid {
		metrics.Settlement(providerName, "already_paid", time.Since(start))
		return res, nil
	}
	metrics.Settlement(providerName, "paid", time.Since(start))
	s.log.Info("order settled", zap.Uint64("order_id", res.Order.ID), zap.String("provider", providerName),
		zap.Int("tickets", len(res.Tickets)))
	s.effects.orderPaid(ctx, res.Order, tc, ev, res.Tickets)
	return res, nil
}

// recordFailedPayment stores a failed attempt in its own transaction so the
// rollback of the settlement does not erase it.
func (s *Settlement) recordFailedPayment(ctx context.Context, orderID uint64, provider, phone string, cause error) {
	ctx, cancel := detach(ctx)
	defer cancel()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderPending {
			return nil
		}
		return tx.InsertPayment(ctx, &model.Payment{
			OrderID:  o.ID,
			Provider: provider,
			Phone:    phone,
			Amount:   o.TotalAmount,
			Status:   model.PaymentFailed,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("record failed payment", zap.Uint64("order_id", orderID), zap.Error(err))
		return
	}
	s.log.Warn("payment failed", zap.Uint64("order_id", orderID), zap.String("provider", provider), zap.Error(cause))
}
