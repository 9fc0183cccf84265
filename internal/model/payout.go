package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the state of a transfer out of an organizer wallet.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
	PayoutFailed  PayoutStatus = "failed"
)

// Payout is a ledger entry for money leaving an organizer wallet, either
// requested manually or emitted by the ended-event sweep (EventID set).
type Payout struct {
	ID          uint64          // payouts.id
	OrganizerID uint64          // payouts.organizer_id
	EventID     *uint64         // payouts.event_id (nullable)
	Amount      decimal.Decimal // payouts.amount
	Status      PayoutStatus    // payouts.status
	Note        string          // payouts.note
	CreatedAt   time.Time       // payouts.created_at
	PaidAt      *time.Time      // payouts.paid_at (nullable)
}
