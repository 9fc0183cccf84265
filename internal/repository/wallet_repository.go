package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// InsertWalletCredit writes the exactly-once marker for an order.  The
// primary key on order_id makes a second insert fail with ErrDuplicate.
func (t *sqlTx) InsertWalletCredit(ctx context.Context, c model.WalletCredit) error {
	const q = `INSERT INTO wallet_credits (order_id, organizer_id, commission_amount, organizer_amount, credited_at) VALUES (?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, c.OrderID, c.OrganizerID, c.CommissionAmount, c.OrganizerAmount, c.CreditedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (t *sqlTx) LockWalletCredit(ctx context.Context, orderID uint64) (model.WalletCredit, error) {
	const q = `SELECT order_id, organizer_id, commission_amount, organizer_amount, credited_at, reversed_at FROM wallet_credits WHERE order_id = ? FOR UPDATE`
	var (
		c          model.WalletCredit
		reversedAt sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, q, orderID).Scan(&c.OrderID, &c.OrganizerID, &c.CommissionAmount,
		&c.OrganizerAmount, &c.CreditedAt, &reversedAt)
	if err != nil {
		return c, notFound(err)
	}
	c.ReversedAt = nullTimePtr(reversedAt)
	return c, nil
}

func (t *sqlTx) MarkWalletCreditReversed(ctx context.Context, orderID uint64, at time.Time) error {
	const q = `UPDATE wallet_credits SET reversed_at = ? WHERE order_id = ? AND reversed_at IS NULL`
	return requireRow(t.tx.ExecContext(ctx, q, at, orderID))
}

// AddPlatformBalance applies delta to the platform wallet as an in-place
// increment.  The row must already exist (see SQLStore.EnsurePlatformWallet).
func (t *sqlTx) AddPlatformBalance(ctx context.Context, delta decimal.Decimal) error {
	const q = `UPDATE platform_wallet SET balance = balance + ? WHERE id = 1`
	return requireRow(t.tx.ExecContext(ctx, q, delta))
}

// AddOrganizerBalance applies delta to an organizer wallet, creating the
// wallet on first use.  The balance may go negative.
func (t *sqlTx) AddOrganizerBalance(ctx context.Context, organizerID uint64, delta decimal.Decimal) error {
	const q = `INSERT INTO organizer_wallets (organizer_id, balance) VALUES (?, ?) ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`
	_, err := t.tx.ExecContext(ctx, q, organizerID, delta)
	return err
}

func (t *sqlTx) GetPlatformWallet(ctx context.Context) (model.PlatformWallet, error) {
	const q = `SELECT balance, updated_at FROM platform_wallet WHERE id = 1`
	var w model.PlatformWallet
	err := t.tx.QueryRowContext(ctx, q).Scan(&w.Balance, &w.UpdatedAt)
	return w, notFound(err)
}

// GetOrganizerWallet returns the organizer's wallet, or a zero balance
// wallet when none has been created yet.
func (t *sqlTx) GetOrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error) {
	const q = `SELECT organizer_id, balance, updated_at FROM organizer_wallets WHERE organizer_id = ?`
	return t.organizerWallet(ctx, q, organizerID)
}

// LockOrganizerWallet is GetOrganizerWallet under FOR UPDATE.  The wallet
// row is created first so the lock always has a row to hold.
func (t *sqlTx) LockOrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error) {
	const ensure = `INSERT IGNORE INTO organizer_wallets (organizer_id, balance) VALUES (?, 0)`
	if _, err := t.tx.ExecContext(ctx, ensure, organizerID); err != nil {
		return model.OrganizerWallet{}, err
	}
	const q = `SELECT organizer_id, balance, updated_at FROM organizer_wallets WHERE organizer_id = ? FOR UPDATE`
	return t.organizerWallet(ctx, q, organizerID)
}

func (t *sqlTx) organizerWallet(ctx context.Context, q string, organizerID uint64) (model.OrganizerWallet, error) {
	var w model.OrganizerWallet
	err := t.tx.QueryRowContext(ctx, q, organizerID).Scan(&w.OrganizerID, &w.Balance, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.OrganizerWallet{OrganizerID: organizerID, Balance: decimal.Zero}, nil
	}
	return w, err
}
