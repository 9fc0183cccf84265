package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// MemoryStore is an in-process Store.  Transactions are fully serialized
// by a single mutex; each one works on a copy of the state that replaces
// the committed state only when fn returns nil.  It backs the service and
// handler tests and local development without MySQL.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	nextID uint64

	events       map[uint64]model.Event
	classes      map[uint64]model.TicketClass
	orders       map[uint64]model.Order
	payments     map[uint64]model.Payment
	tickets      map[uint64]model.Ticket
	credits      map[uint64]model.WalletCredit
	platform     model.PlatformWallet
	organizers   map[uint64]model.OrganizerWallet
	payouts      map[uint64]model.Payout
	ticketByCode map[string]uint64
}

// NewMemoryStore returns an empty store with a zero platform wallet.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now: time.Now,
		state: &memState{
			events:       map[uint64]model.Event{},
			classes:      map[uint64]model.TicketClass{},
			orders:       map[uint64]model.Order{},
			payments:     map[uint64]model.Payment{},
			tickets:      map[uint64]model.Ticket{},
			credits:      map[uint64]model.WalletCredit{},
			platform:     model.PlatformWallet{Balance: decimal.Zero},
			organizers:   map[uint64]model.OrganizerWallet{},
			payouts:      map[uint64]model.Payout{},
			ticketByCode: map[string]uint64{},
		},
	}
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{s: work, now: m.now}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		nextID:       s.nextID,
		events:       cloneMap(s.events),
		classes:      cloneMap(s.classes),
		orders:       cloneMap(s.orders),
		payments:     cloneMap(s.payments),
		tickets:      cloneMap(s.tickets),
		credits:      cloneMap(s.credits),
		platform:     s.platform,
		organizers:   cloneMap(s.organizers),
		payouts:      cloneMap(s.payouts),
		ticketByCode: cloneMap(s.ticketByCode),
	}
}

type memTx struct {
	s   *memState
	now func() time.Time
}

func (t *memTx) id() uint64 {
	t.s.nextID++
	return t.s.nextID
}

func sortedValues[V any](m map[uint64]V, keep func(V) bool, less func(a, b V) bool) []V {
	var out []V
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// events

func (t *memTx) InsertEvent(_ context.Context, e *model.Event) error {
	now := t.now()
	e.ID = t.id()
	e.CreatedAt, e.UpdatedAt = now, now
	t.s.events[e.ID] = *e
	return nil
}

func (t *memTx) GetEvent(_ context.Context, id uint64) (model.Event, error) {
	e, ok := t.s.events[id]
	if !ok {
		return e, ErrNotFound
	}
	return e, nil
}

func eventLess(a, b model.Event) bool {
	if !a.StartsAt.Equal(b.StartsAt) {
		return a.StartsAt.Before(b.StartsAt)
	}
	return a.ID < b.ID
}

func (t *memTx) ListEvents(context.Context) ([]model.Event, error) {
	return sortedValues(t.s.events, func(model.Event) bool { return true }, eventLess), nil
}

func (t *memTx) ListEventsByOrganizer(_ context.Context, organizerID uint64) ([]model.Event, error) {
	return sortedValues(t.s.events, func(e model.Event) bool { return e.OrganizerID == organizerID }, eventLess), nil
}

func (t *memTx) LockEndedEventsAwaitingPayout(_ context.Context, now time.Time) ([]model.Event, error) {
	return sortedValues(t.s.events,
		func(e model.Event) bool { return e.EndsAt.Before(now) && !e.PayoutDone },
		func(a, b model.Event) bool { return a.ID < b.ID }), nil
}

func (t *memTx) MarkEventPayoutDone(_ context.Context, id uint64) error {
	e, ok := t.s.events[id]
	if !ok {
		return ErrNotFound
	}
	e.PayoutDone = true
	e.UpdatedAt = t.now()
	t.s.events[id] = e
	return nil
}

// ticket classes

func (t *memTx) InsertTicketClass(_ context.Context, tc *model.TicketClass) error {
	now := t.now()
	tc.ID = t.id()
	tc.QuantitySold = 0
	tc.CreatedAt, tc.UpdatedAt = now, now
	t.s.classes[tc.ID] = *tc
	return nil
}

func (t *memTx) GetTicketClass(_ context.Context, id uint64) (model.TicketClass, error) {
	tc, ok := t.s.classes[id]
	if !ok {
		return tc, ErrNotFound
	}
	return tc, nil
}

func (t *memTx) LockTicketClass(ctx context.Context, id uint64) (model.TicketClass, error) {
	return t.GetTicketClass(ctx, id)
}

func (t *memTx) ListTicketClasses(_ context.Context, eventID uint64) ([]model.TicketClass, error) {
	return sortedValues(t.s.classes,
		func(tc model.TicketClass) bool { return tc.EventID == eventID },
		func(a, b model.TicketClass) bool { return a.ID < b.ID }), nil
}

func (t *memTx) SetTicketClassSold(_ context.Context, id uint64, sold int) error {
	tc, ok := t.s.classes[id]
	if !ok {
		return ErrNotFound
	}
	if sold < 0 || sold > tc.QuantityTotal {
		return ErrConflict
	}
	tc.QuantitySold = sold
	tc.UpdatedAt = t.now()
	t.s.classes[id] = tc
	return nil
}

func (t *memTx) SetTicketClassTotal(_ context.Context, id uint64, total int) error {
	tc, ok := t.s.classes[id]
	if !ok || tc.QuantitySold > total {
		return ErrConflict
	}
	tc.QuantityTotal = total
	tc.UpdatedAt = t.now()
	t.s.classes[id] = tc
	return nil
}

// orders

func (t *memTx) InsertOrder(_ context.Context, o *model.Order) error {
	now := t.now()
	o.ID = t.id()
	o.CreatedAt, o.UpdatedAt = now, now
	t.s.orders[o.ID] = *o
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id uint64) (model.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return o, ErrNotFound
	}
	return o, nil
}

func (t *memTx) UpdateOrder(_ context.Context, o model.Order) error {
	cur, ok := t.s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = o.Status
	cur.RefundReason = o.RefundReason
	cur.PaidAt = o.PaidAt
	cur.RefundedAt = o.RefundedAt
	cur.UpdatedAt = t.now()
	t.s.orders[o.ID] = cur
	return nil
}

func orderNewestFirst(a, b model.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (t *memTx) ListOrdersByUser(_ context.Context, userID uint64) ([]model.Order, error) {
	return sortedValues(t.s.orders, func(o model.Order) bool { return o.UserID == userID }, orderNewestFirst), nil
}

func (t *memTx) organizerOf(classID uint64) (uint64, uint64, bool) {
	tc, ok := t.s.classes[classID]
	if !ok {
		return 0, 0, false
	}
	e, ok := t.s.events[tc.EventID]
	if !ok {
		return 0, 0, false
	}
	return e.OrganizerID, e.ID, true
}

func (t *memTx) ListOrdersByOrganizer(_ context.Context, organizerID uint64, status model.OrderStatus) ([]model.Order, error) {
	return sortedValues(t.s.orders, func(o model.Order) bool {
		org, _, ok := t.organizerOf(o.TicketClassID)
		return ok && org == organizerID && o.Status == status
	}, orderNewestFirst), nil
}

func (t *memTx) SumPaidOrganizerAmount(_ context.Context, eventID uint64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range t.s.orders {
		if o.Status != model.OrderPaid {
			continue
		}
		if _, ev, ok := t.organizerOf(o.TicketClassID); ok && ev == eventID {
			sum = sum.Add(o.OrganizerAmount)
		}
	}
	return sum, nil
}

// payments

func (t *memTx) InsertPayment(_ context.Context, p *model.Payment) error {
	now := t.now()
	p.ID = t.id()
	p.CreatedAt, p.UpdatedAt = now, now
	t.s.payments[p.ID] = *p
	return nil
}

func (t *memTx) LockSuccessfulPayment(_ context.Context, orderID uint64) (model.Payment, error) {
	var (
		best  model.Payment
		found bool
	)
	for _, p := range t.s.payments {
		if p.OrderID == orderID && p.Status == model.PaymentSuccess && (!found || p.ID > best.ID) {
			best, found = p, true
		}
	}
	if !found {
		return best, ErrNotFound
	}
	return best, nil
}

func (t *memTx) UpdatePaymentStatus(_ context.Context, id uint64, status model.PaymentStatus) error {
	p, ok := t.s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = t.now()
	t.s.payments[id] = p
	return nil
}

// tickets

func (t *memTx) InsertTickets(_ context.Context, tickets []*model.Ticket) error {
	for _, tk := range tickets {
		if _, dup := t.s.ticketByCode[tk.Code]; dup {
			return ErrDuplicate
		}
	}
	for _, tk := range tickets {
		tk.ID = t.id()
		if tk.CreatedAt.IsZero() {
			tk.CreatedAt = t.now()
		}
		t.s.tickets[tk.ID] = *tk
		t.s.ticketByCode[tk.Code] = tk.ID
	}
	return nil
}

func ticketNewestFirst(a, b model.Ticket) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (t *memTx) ListTicketsByOrder(_ context.Context, orderID uint64) ([]model.Ticket, error) {
	return sortedValues(t.s.tickets,
		func(tk model.Ticket) bool { return tk.OrderID == orderID },
		func(a, b model.Ticket) bool { return a.ID < b.ID }), nil
}

func (t *memTx) ListTicketsByUser(_ context.Context, userID uint64) ([]model.Ticket, error) {
	return sortedValues(t.s.tickets, func(tk model.Ticket) bool { return tk.UserID == userID }, ticketNewestFirst), nil
}

func (t *memTx) CountUsedTicketsByOrder(_ context.Context, orderID uint64) (int, error) {
	n := 0
	for _, tk := range t.s.tickets {
		if tk.OrderID == orderID && tk.IsUsed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) LockCancellableTickets(_ context.Context, userID, ticketClassID uint64, limit int) ([]model.Ticket, error) {
	out := sortedValues(t.s.tickets, func(tk model.Ticket) bool {
		return tk.UserID == userID && tk.TicketClassID == ticketClassID && !tk.IsCancelled && !tk.IsUsed
	}, ticketNewestFirst)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) CancelTickets(_ context.Context, ids []uint64, at time.Time) error {
	for _, id := range ids {
		tk, ok := t.s.tickets[id]
		if !ok {
			continue
		}
		ts := at
		tk.IsCancelled = true
		tk.CancelledAt = &ts
		t.s.tickets[id] = tk
	}
	return nil
}

func (t *memTx) LockTicketByCode(_ context.Context, code string) (model.Ticket, error) {
	id, ok := t.s.ticketByCode[code]
	if !ok {
		return model.Ticket{}, ErrNotFound
	}
	return t.s.tickets[id], nil
}

func (t *memTx) MarkTicketUsed(_ context.Context, id uint64, at time.Time) error {
	tk, ok := t.s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ts := at
	tk.IsUsed = true
	tk.UsedAt = &ts
	t.s.tickets[id] = tk
	return nil
}

// wallets

func (t *memTx) InsertWalletCredit(_ context.Context, c model.WalletCredit) error {
	if _, dup := t.s.credits[c.OrderID]; dup {
		return ErrDuplicate
	}
	t.s.credits[c.OrderID] = c
	return nil
}

func (t *memTx) LockWalletCredit(_ context.Context, orderID uint64) (model.WalletCredit, error) {
	c, ok := t.s.credits[orderID]
	if !ok {
		return c, ErrNotFound
	}
	return c, nil
}

func (t *memTx) MarkWalletCreditReversed(_ context.Context, orderID uint64, at time.Time) error {
	c, ok := t.s.credits[orderID]
	if !ok || c.ReversedAt != nil {
		return ErrNotFound
	}
	ts := at
	c.ReversedAt = &ts
	t.s.credits[orderID] = c
	return nil
}

func (t *memTx) AddPlatformBalance(_ context.Context, delta decimal.Decimal) error {
	t.s.platform.Balance = t.s.platform.Balance.Add(delta)
	t.s.platform.UpdatedAt = t.now()
	return nil
}

func (t *memTx) AddOrganizerBalance(_ context.Context, organizerID uint64, delta decimal.Decimal) error {
	w, ok := t.s.organizers[organizerID]
	if !ok {
		w = model.OrganizerWallet{OrganizerID: organizerID, Balance: decimal.Zero}
	}
	w.Balance = w.Balance.Add(delta)
	w.UpdatedAt = t.now()
	t.s.organizers[organizerID] = w
	return nil
}

func (t *memTx) GetPlatformWallet(context.Context) (model.PlatformWallet, error) {
	return t.s.platform, nil
}

func (t *memTx) GetOrganizerWallet(_ context.Context, organizerID uint64) (model.OrganizerWallet, error) {
	w, ok := t.s.organizers[organizerID]
	if !ok {
		return model.OrganizerWallet{OrganizerID: organizerID, Balance: decimal.Zero}, nil
	}
	return w, nil
}

// LockOrganizerWallet needs no row lock here: WithTx already serializes
// writers.
func (t *memTx) LockOrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error) {
	return t.GetOrganizerWallet(ctx, organizerID)
}

// payouts

func (t *memTx) InsertPayout(_ context.Context, p *model.Payout) error {
	p.ID = t.id()
	p.CreatedAt = t.now()
	t.s.payouts[p.ID] = *p
	return nil
}

func (t *memTx) LockPendingPayouts(context.Context) ([]model.Payout, error) {
	return sortedValues(t.s.payouts,
		func(p model.Payout) bool { return p.Status == model.PayoutPending },
		func(a, b model.Payout) bool { return a.ID < b.ID }), nil
}

func (t *memTx) UpdatePayoutStatus(_ context.Context, id uint64, status model.PayoutStatus, paidAt *time.Time) error {
	p, ok := t.s.payouts[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.PaidAt = paidAt
	t.s.payouts[id] = p
	return nil
}

func (t *memTx) ListPayoutsByOrganizer(_ context.Context, organizerID uint64) ([]model.Payout, error) {
	return sortedValues(t.s.payouts, func(p model.Payout) bool { return p.OrganizerID == organizerID },
		func(a, b model.Payout) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}), nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Tx    = (*memTx)(nil)
	_ Tx    = (*sqlTx)(nil)
)
