package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Payouts records transfers out of organizer wallets.
type Payouts struct {
	base
}

// SweepEndedEvents creates one pending payout per ended event that has not
// been swept yet, for the organizer share of its paid orders, and marks the
// event swept.  A sweep payout never exceeds what the organizer can still
// withdraw: the wallet balance minus payouts already pending.  Events with
// nothing left to pay are marked without a payout.  Running it twice
// creates nothing the second time.
func (p *Payouts) SweepEndedEvents(ctx context.Context) ([]model.Payout, error) {
	var created []model.Payout
	err := p.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		events, err := tx.LockEndedEventsAwaitingPayout(ctx, p.now())
		if err != nil {
			return err
		}
		available := map[uint64]decimal.Decimal{} // per organizer, shrinks as payouts are created
		for _, ev := range events {
			sum, err := tx.SumPaidOrganizerAmount(ctx, ev.ID)
			if err != nil {
				return err
			}
			if sum.IsPositive() {
				left, ok := available[ev.OrganizerID]
				if !ok {
					if left, err = p.withdrawable(ctx, tx, ev.OrganizerID); err != nil {
						return err
					}
				}
				amount := decimal.Min(sum, left)
				if amount.IsPositive() {
					eventID := ev.ID
					po := model.Payout{
						OrganizerID: ev.OrganizerID,
						EventID:     &eventID,
						Amount:      amount,
						Status:      model.PayoutPending,
						Note:        "payout for " + ev.Title,
					}
					if err := tx.InsertPayout(ctx, &po); err != nil {
						return err
					}
					created = append(created, po)
					left = left.Sub(amount)
				} else {
					p.log.Info("event already withdrawn", zap.Uint64("event_id", ev.ID),
						zap.String("share", sum.StringFixed(money.Places)))
				}
				available[ev.OrganizerID] = left
			}
			if err := tx.MarkEventPayoutDone(ctx, ev.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		metrics.PayoutCreated("sweep", len(created))
		p.log.Info("payout sweep", zap.Int("payouts", len(created)))
	}
	return created, nil
}

// withdrawable locks the organizer wallet and returns its balance minus
// the payouts still pending against it.
func (p *Payouts) withdrawable(ctx context.Context, tx repository.Tx, organizerID uint64) (decimal.Decimal, error) {
	w, err := tx.LockOrganizerWallet(ctx, organizerID)
	if err != nil {
		return decimal.Zero, err
	}
	existing, err := tx.ListPayoutsByOrganizer(ctx, organizerID)
	if err != nil {
		return decimal.Zero, err
	}
	left := w.Balance
	for _, e := range existing {
		if e.Status == model.PayoutPending {
			left = left.Sub(e.Amount)
		}
	}
	return left, nil
}

// ProcessPendingPayouts marks every pending payout paid and debits the
// organizer wallet by its amount in the same transaction.
func (p *Payouts) ProcessPendingPayouts(ctx context.Context) ([]model.Payout, error) {
	var paid []model.Payout
	err := p.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.LockPendingPayouts(ctx)
		if err != nil {
			return err
		}
		now := p.now()
		for _, po := range pending {
			if err := tx.AddOrganizerBalance(ctx, po.OrganizerID, po.Amount.Neg()); err != nil {
				return err
			}
			if err := tx.UpdatePayoutStatus(ctx, po.ID, model.PayoutPaid, &now); err != nil {
				return err
			}
			po.Status = model.PayoutPaid
			po.PaidAt = &now
			paid = append(paid, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paid) > 0 {
		p.log.Info("payouts processed", zap.Int("payouts", len(paid)))
	}
	return paid, nil
}

// RequestPayout records a manual pending payout.  The amount may not exceed
// the wallet balance minus payouts already pending.
func (p *Payouts) RequestPayout(ctx context.Context, organizerID uint64, amount decimal.Decimal) (model.Payout, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(money.Places)) {
		return model.Payout{}, newError(KindValidation, "amount must be positive with at most %d decimals", money.Places)
	}
	po := model.Payout{OrganizerID: organizerID, Amount: amount, Status: model.PayoutPending, Note: "manual payout"}
	err := p.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		available, err := p.withdrawable(ctx, tx, organizerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return newError(KindInvalidState, "requested %s exceeds available %s",
				amount.StringFixed(money.Places), available.StringFixed(money.Places))
		}
		return tx.InsertPayout(ctx, &po)
	})
	if err != nil {
		return model.Payout{}, err
	}
	metrics.PayoutCreated("manual", 1)
	return po, nil
}

func (p *Payouts) ListPayouts(ctx context.Context, organizerID uint64) ([]model.Payout, error) {
	var out []model.Payout
	err := p.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.ListPayoutsByOrganizer(ctx, organizerID)
		return err
	})
	return out, err
}
