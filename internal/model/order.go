package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.  Valid transitions are
// pending → paid → refund_requested → refunded, plus refund_requested →
// paid when an organizer rejects the refund.
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderPaid            OrderStatus = "paid"
	OrderRefundRequested OrderStatus = "refund_requested"
	OrderRefunded        OrderStatus = "refunded"
)

// Order records a buyer's intent to purchase Quantity units of one ticket
// class at the price quoted when it was created.  The amounts are fixed at
// creation and TotalAmount always equals CommissionAmount + OrganizerAmount.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – buyer.
//  TicketClassID    – ticket class being purchased.
//  Quantity         – number of tickets.
//  TotalAmount      – unit price × quantity.
//  CommissionAmount – platform share, rounded to cents.
//  OrganizerAmount  – TotalAmount − CommissionAmount.
//  CommissionRate   – rate used for the split, kept for audit.
//  Status           – lifecycle state.
//  RefundReason     – buyer supplied text while a refund is pending.
//  PaidAt           – settlement time (nil until paid).
//  RefundedAt       – reversal time (nil until refunded).
type Order struct {
	ID               uint64          // orders.id
	UserID           uint64          // orders.user_id
	TicketClassID    uint64          // orders.ticket_class_id
	Quantity         int             // orders.quantity
	TotalAmount      decimal.Decimal // orders.total_amount
	CommissionAmount decimal.Decimal // orders.commission_amount
	OrganizerAmount  decimal.Decimal // orders.organizer_amount
	CommissionRate   decimal.Decimal // orders.commission_rate
	Status           OrderStatus     // orders.status
	RefundReason     string          // orders.refund_reason
	CreatedAt        time.Time       // orders.created_at
	UpdatedAt        time.Time       // orders.updated_at
	PaidAt           *time.Time      // orders.paid_at (nullable)
	RefundedAt       *time.Time      // orders.refunded_at (nullable)
}
