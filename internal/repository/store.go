package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Store runs units of work atomically.  fn receives a Tx that is valid
// only for the duration of the call; returning an error from fn rolls
// back everything it did.  Both the MySQL store and the in-memory store
// implement this interface.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of row operations available inside a transaction.  Lock*
// methods take a row-level write lock (SELECT ... FOR UPDATE) that is held
// until the transaction ends.  Callers that lock more than one row must
// lock in the order order → ticket class → payment → tickets → wallet
// credit → platform wallet → organizer wallet.
//
// Lookups of missing rows return ErrNotFound.
type Tx interface {
	// events
	InsertEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error)
	LockEndedEventsAwaitingPayout(ctx context.Context, now time.Time) ([]model.Event, error)
	MarkEventPayoutDone(ctx context.Context, id uint64) error

	// ticket classes
	InsertTicketClass(ctx context.Context, tc *model.TicketClass) error
	GetTicketClass(ctx context.Context, id uint64) (model.TicketClass, error)
	LockTicketClass(ctx context.Context, id uint64) (model.TicketClass, error)
	ListTicketClasses(ctx context.Context, eventID uint64) ([]model.TicketClass, error)
	SetTicketClassSold(ctx context.Context, id uint64, sold int) error
	SetTicketClassTotal(ctx context.Context, id uint64, total int) error

	// orders
	InsertOrder(ctx context.Context, o *model.Order) error
	LockOrder(ctx context.Context, id uint64) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) error
	ListOrdersByUser(ctx context.Context, userID uint64) ([]model.Order, error)
	ListOrdersByOrganizer(ctx context.Context, organizerID uint64, status model.OrderStatus) ([]model.Order, error)
	SumPaidOrganizerAmount(ctx context.Context, eventID uint64) (decimal.Decimal, error)

	// payments
	InsertPayment(ctx context.Context, p *model.Payment) error
	LockSuccessfulPayment(ctx context.Context, orderID uint64) (model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error

	// tickets
	InsertTickets(ctx context.Context, tickets []*model.Ticket) error
	ListTicketsByOrder(ctx context.Context, orderID uint64) ([]model.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)
	CountUsedTicketsByOrder(ctx context.Context, orderID uint64) (int, error)
	LockCancellableTickets(ctx context.Context, userID, ticketClassID uint64, limit int) ([]model.Ticket, error)
	CancelTickets(ctx context.Context, ids []uint64, at time.Time) error
	LockTicketByCode(ctx context.Context, code string) (model.Ticket, error)
	MarkTicketUsed(ctx context.Context, id uint64, at time.Time) error

	// wallets
	InsertWalletCredit(ctx context.Context, c model.WalletCredit) error
	LockWalletCredit(ctx context.Context, orderID uint64) (model.WalletCredit, error)
	MarkWalletCreditReversed(ctx context.Context, orderID uint64, at time.Time) error
	AddPlatformBalance(ctx context.Context, delta decimal.Decimal) error
	AddOrganizerBalance(ctx context.Context, organizerID uint64, delta decimal.Decimal) error
	GetPlatformWallet(ctx context.Context) (model.PlatformWallet, error)
	GetOrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error)
	LockOrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error)

	// payouts
	InsertPayout(ctx context.Context, p *model.Payout) error
	LockPendingPayouts(ctx context.Context) ([]model.Payout, error)
	UpdatePayoutStatus(ctx context.Context, id uint64, status model.PayoutStatus, paidAt *time.Time) error
	ListPayoutsByOrganizer(ctx context.Context, organizerID uint64) ([]model.Payout, error)
}
