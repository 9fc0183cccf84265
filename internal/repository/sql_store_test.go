package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, nil), mock
}

func TestSQLStore_WithTxCommits(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ticket_classes SET quantity_sold = \? WHERE id = \?`).
		WithArgs(3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SetTicketClassSold(ctx, 7, 3)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_WithTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(context.Context, Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LockTicketClass(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM ticket_classes WHERE id = \? FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "price", "quantity_total", "quantity_sold", "created_at", "updated_at"}).
			AddRow(5, 2, "VIP", "25.50", 10, 4, now, now))
	mock.ExpectCommit()

	var got model.TicketClass
	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		got, err = tx.LockTicketClass(ctx, 5)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.EventID)
	assert.True(t, decimal.RequireFromString("25.50").Equal(got.Price))
	assert.Equal(t, 6, got.Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LockOrderMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \? FOR UPDATE`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.LockOrder(ctx, 99)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertWalletCreditDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO wallet_credits`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.InsertWalletCredit(ctx, model.WalletCredit{OrderID: 1, OrganizerID: 2,
			CommissionAmount: decimal.RequireFromString("1.00"), OrganizerAmount: decimal.RequireFromString("9.00"),
			CreditedAt: time.Now()})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertTicketsAssignsConsecutiveIDs(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tickets \(code, order_id, user_id, ticket_class_id, asset_ref, created_at\) VALUES \(\?, \?, \?, \?, \?, \?\),\(\?, \?, \?, \?, \?, \?\)`).
		WillReturnResult(sqlmock.NewResult(40, 2))
	mock.ExpectCommit()

	tickets := []*model.Ticket{{Code: "a", OrderID: 1}, {Code: "b", OrderID: 1}}
	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.InsertTickets(ctx, tickets)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(40), tickets[0].ID)
	assert.Equal(t, uint64(41), tickets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_AddPlatformBalanceRequiresRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE platform_wallet SET balance = balance \+ \? WHERE id = 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.AddPlatformBalance(ctx, decimal.RequireFromString("1.00"))
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SumPaidOrganizerAmount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(o.organizer_amount\), 0\)`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("180.00"))
	mock.ExpectCommit()

	var sum decimal.Decimal
	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		sum, err = tx.SumPaidOrganizerAmount(ctx, 3)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "180.00", sum.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetOrganizerWalletDefaultsToZero(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT organizer_id, balance, updated_at FROM organizer_wallets`).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id", "balance", "updated_at"}))
	mock.ExpectCommit()

	var w model.OrganizerWallet
	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		w, err = tx.GetOrganizerWallet(ctx, 8)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), w.OrganizerID)
	assert.True(t, w.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetTicketClassTotalBelowSold(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ticket_classes SET quantity_total = \? WHERE id = \? AND quantity_sold <= \?`).
		WithArgs(2, 4, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SetTicketClassTotal(ctx, 4, 2)
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LockOrganizerWalletCreatesRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT IGNORE INTO organizer_wallets`).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM organizer_wallets WHERE organizer_id = \? FOR UPDATE`).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id", "balance", "updated_at"}).
			AddRow(12, "40.50", now))
	mock.ExpectCommit()

	var got model.OrganizerWallet
	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		got, err = tx.LockOrganizerWallet(ctx, 12)
		return err
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40.50").Equal(got.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LockCancellableTicketsSkipsUsed(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tickets WHERE user_id = \? AND ticket_class_id = \? AND is_cancelled = 0 AND is_used = 0 ORDER BY created_at DESC, id DESC LIMIT \? FOR UPDATE`).
		WithArgs(1, 9, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		got, err := tx.LockCancellableTickets(ctx, 1, 9, 2)
		assert.Empty(t, got)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).Create(context.Background(),
		NewUser{Email: "A@b.com ", Password: "secret", Role: model.RoleCustomer}, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepo_ConsumeUnknownCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(`UPDATE email_otps SET used_at=\?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE email_otps SET attempts=attempts\+1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewOTPRepo(db).Consume(context.Background(), "a@b.com", "123456", model.OTPPurposeVerify, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
