package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// WalletLedger keeps the platform and organizer running balances.  The
// wallet_credits row keyed by order id is the exactly-once marker for both
// directions.
//
// Organizer balances are bookkeeping, not available funds: a reversal
// after a payout legitimately drives a balance negative.
type WalletLedger struct {
	base
}

// CreditForOrder credits the platform with the order's commission and the
// organizer with the remainder.  It reports false and changes nothing when
// the order was already credited.
func (w *WalletLedger) CreditForOrder(ctx context.Context, tx repository.Tx, o model.Order, organizerID uint64) (bool, error) {
	if _, err := tx.LockWalletCredit(ctx, o.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	err := tx.InsertWalletCredit(ctx, model.WalletCredit{
		OrderID:          o.ID,
		OrganizerID:      organizerID,
		CommissionAmount: o.CommissionAmount,
		OrganizerAmount:  o.OrganizerAmount,
		CreditedAt:       w.now(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := tx.AddPlatformBalance(ctx, o.CommissionAmount); err != nil {
		return false, err
	}
	if err := tx.AddOrganizerBalance(ctx, organizerID, o.OrganizerAmount); err != nil {
		return false, err
	}
	return true, nil
}

// ReverseForOrder undoes the credit recorded for an order, using the
// amounts on the credit row.  It reports false when there is no credit or
// it was already reversed.
func (w *WalletLedger) ReverseForOrder(ctx context.Context, tx repository.Tx, o model.Order) (bool, error) {
	c, err := tx.LockWalletCredit(ctx, o.ID)
	if errors.Is(err, repository.ErrNotFound) {
		w.log.Warn("reversal without wallet credit", zap.Uint64("order_id", o.ID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ReversedAt != nil {
		return false, nil
	}
	if err := tx.MarkWalletCreditReversed(ctx, o.ID, w.now()); err != nil {
		return false, err
	}
	if err := tx.AddPlatformBalance(ctx, c.CommissionAmount.Neg()); err != nil {
		return false, err
	}
	if err := tx.AddOrganizerBalance(ctx, c.OrganizerID, c.OrganizerAmount.Neg()); err != nil {
		return false, err
	}
	return true, nil
}
