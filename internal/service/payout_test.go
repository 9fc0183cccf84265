package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func TestSweepEndedEvents_IsIdempotent(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 2)
	f.paidOrder(t, otherBuyer, 1)
	f.order(t, otherBuyer, 3) // pending orders are not paid out

	created, err := f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, created, "event has not ended yet")

	f.clock.Advance(8 * 24 * time.Hour)
	created, err = f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	po := created[0]
	assert.Equal(t, organizerID, po.OrganizerID)
	require.NotNil(t, po.EventID)
	assert.Equal(t, f.event.ID, *po.EventID)
	decimalEq(t, "135.00", po.Amount)
	assert.Equal(t, model.PayoutPending, po.Status)

	created, err = f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)

	payouts, err := f.svc.Payouts.ListPayouts(ctx, organizerID)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

func TestProcessPendingPayouts_DebitsWallet(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 2)
	f.clock.Advance(8 * 24 * time.Hour)
	_, err := f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)

	paid, err := f.svc.Payouts.ProcessPendingPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, model.PayoutPaid, paid[0].Status)
	require.NotNil(t, paid[0].PaidAt)
	assert.True(t, f.organizerBalance(t).IsZero())

	paid, err = f.svc.Payouts.ProcessPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, paid)

	d, err := f.svc.Views.OrganizerDashboard(ctx, organizerID)
	require.NoError(t, err)
	decimalEq(t, "90.00", d.PaidPayouts)
	assert.True(t, d.PendingPayouts.IsZero())
}

func TestSweepEndedEvents_NeverPaysWithdrawnShareTwice(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 2) // organizer share 90.00

	_, err := f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)
	paid, err := f.svc.Payouts.ProcessPendingPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, paid, 1)

	f.clock.Advance(8 * 24 * time.Hour)
	created, err := f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)
	paid, err = f.svc.Payouts.ProcessPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, paid)
	assert.True(t, f.organizerBalance(t).IsZero())

	d, err := f.svc.Views.OrganizerDashboard(ctx, organizerID)
	require.NoError(t, err)
	decimalEq(t, "90.00", d.PaidPayouts)
}

func TestSweepEndedEvents_CapsAtWithdrawableBalance(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 2)

	_, err := f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("30.00"))
	require.NoError(t, err) // still pending when the sweep runs

	f.clock.Advance(8 * 24 * time.Hour)
	created, err := f.svc.Payouts.SweepEndedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	decimalEq(t, "60.00", created[0].Amount)

	paid, err := f.svc.Payouts.ProcessPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Len(t, paid, 2)
	assert.True(t, f.organizerBalance(t).IsZero())
}

func TestRequestPayout(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 1) // organizer balance 45.00

	_, err := f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("0"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("1.005"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("45.01"))
	assert.ErrorIs(t, err, ErrInvalidState)

	po, err := f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	assert.Nil(t, po.EventID)
	assert.Equal(t, model.PayoutPending, po.Status)

	// pending payouts count against the balance
	_, err = f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("20.00"))
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Payouts.RequestPayout(ctx, organizerID, decimal.RequireFromString("15.00"))
	require.NoError(t, err)
}

func TestOrganizerDashboard(t *testing.T) {
	f := newFixture(t, 10, "20.00")
	ctx := context.Background()
	f.paidOrder(t, buyerID, 2)
	f.paidOrder(t, otherBuyer, 1)
	f.order(t, buyerID, 5)

	d, err := f.svc.Views.OrganizerDashboard(ctx, organizerID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Events)
	assert.Equal(t, 2, d.PaidOrders)
	assert.Equal(t, 3, d.TicketsSold)
	decimalEq(t, "60.00", d.TotalSales)
	decimalEq(t, "54.00", d.Balance)

	orders, err := f.svc.Views.ListMyOrders(ctx, buyerID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
