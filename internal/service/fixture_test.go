package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

const (
	organizerID uint64 = 100
	buyerID     uint64 = 200
	otherBuyer  uint64 = 201
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store *repository.MemoryStore
	clock *clock
	svc   *Services
	event model.Event
	class model.TicketClass
}

type fixtureOption func(*Options)

func newFixture(t *testing.T, total int, price string, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		clock: &clock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	o := Options{
		Store:          f.store,
		Log:            zap.NewNop(),
		Now:            f.clock.Now,
		CommissionRate: money.DefaultCommissionRate,
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.svc = New(o)

	ctx := context.Background()
	var err error
	f.event, err = f.svc.Catalog.CreateEvent(ctx, organizerID, EventInput{
		Title:    "Juba Jazz Night",
		StartsAt: f.clock.Now().Add(7 * 24 * time.Hour),
		EndsAt:   f.clock.Now().Add(7*24*time.Hour + 4*time.Hour),
	})
	require.NoError(t, err)
	f.class, err = f.svc.Catalog.CreateTicketClass(ctx, organizerID, f.event.ID, TicketClassInput{
		Name:          "General",
		Price:         decimal.RequireFromString(price),
		QuantityTotal: total,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) order(t *testing.T, buyer uint64, qty int) model.Order {
	t.Helper()
	o, err := f.svc.Settlement.CreateOrder(context.Background(), buyer, f.class.ID, qty)
	require.NoError(t, err)
	return o
}

func (f *fixture) paidOrder(t *testing.T, buyer uint64, qty int) CaptureResult {
	t.Helper()
	o := f.order(t, buyer, qty)
	res, err := f.svc.Settlement.CapturePayment(context.Background(), buyer, o.ID, "momo", "+211900000001")
	require.NoError(t, err)
	return res
}

func (f *fixture) sold(t *testing.T) int {
	t.Helper()
	classes, err := f.svc.Catalog.ListTicketClasses(context.Background(), f.event.ID)
	require.NoError(t, err)
	for _, c := range classes {
		if c.ID == f.class.ID {
			return c.QuantitySold
		}
	}
	t.Fatalf("ticket class %d missing", f.class.ID)
	return 0
}

func (f *fixture) organizerBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := f.svc.Views.OrganizerWallet(context.Background(), organizerID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) platformBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := f.svc.Views.PlatformWallet(context.Background())
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) tickets(t *testing.T, buyer uint64) []model.Ticket {
	t.Helper()
	out, err := f.svc.Views.ListMyTickets(context.Background(), buyer)
	require.NoError(t, err)
	return out
}

func (f *fixture) withTx(t *testing.T, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	require.NoError(t, f.store.WithTx(context.Background(), fn))
}

func decimalEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

type recordingPublisher struct {
	mu       sync.Mutex
	paid     []queue.OrderPaidEvent
	refunded []queue.OrderRefundedEvent
}

func (p *recordingPublisher) PublishOrderPaid(_ context.Context, ev queue.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, ev)
	return nil
}

func (p *recordingPublisher) PublishOrderRefunded(_ context.Context, ev queue.OrderRefundedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded = append(p.refunded, ev)
	return nil
}

type staticDirectory map[uint64]string

func (d staticDirectory) EmailOf(_ context.Context, id uint64) (string, error) {
	if e, ok := d[id]; ok {
		return e, nil
	}
	return "", repository.ErrNotFound
}

type mail struct{ to, subject, body string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, mail{to, subject, body})
	return n.err
}
