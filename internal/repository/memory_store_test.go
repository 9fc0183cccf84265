package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.AddPlatformBalance(ctx, decimal.NewFromInt(5)))
		return errors.New("abort")
	})
	require.Error(t, err)

	_ = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		w, err := tx.GetPlatformWallet(ctx)
		require.NoError(t, err)
		assert.True(t, w.Balance.IsZero())
		return nil
	})
}

func TestMemoryStore_WalletCreditIsUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	credit := model.WalletCredit{OrderID: 1, OrganizerID: 2, CreditedAt: time.Now()}

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertWalletCredit(ctx, credit)
	}))
	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertWalletCredit(ctx, credit)
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_CancellableTicketsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertTickets(ctx, []*model.Ticket{
			{Code: "old", UserID: 1, TicketClassID: 9, OrderID: 1, CreatedAt: base},
			{Code: "mid", UserID: 1, TicketClassID: 9, OrderID: 1, CreatedAt: base.Add(time.Hour)},
			{Code: "new", UserID: 1, TicketClassID: 9, OrderID: 2, CreatedAt: base.Add(2 * time.Hour)},
			{Code: "scanned", UserID: 1, TicketClassID: 9, OrderID: 4, CreatedAt: base.Add(4 * time.Hour), IsUsed: true},
			{Code: "other", UserID: 2, TicketClassID: 9, OrderID: 3, CreatedAt: base.Add(3 * time.Hour)},
		})
	}))

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		got, err := tx.LockCancellableTickets(ctx, 1, 9, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "new", got[0].Code)
		assert.Equal(t, "mid", got[1].Code)
		return nil
	}))
}

func TestMemoryStore_SoldCannotExceedTotal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tc := &model.TicketClass{EventID: 1, Name: "GA", Price: decimal.NewFromInt(10), QuantityTotal: 2}

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertTicketClass(ctx, tc)
	}))
	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetTicketClassSold(ctx, tc.ID, 3)
	})
	assert.ErrorIs(t, err, ErrConflict)
}
