package model

import "time"

// Ticket is one admission minted for one unit of a paid order.  Code is
// the opaque scan token printed on the ticket; it is globally unique.
// Tickets are never deleted: a refund sets IsCancelled.
//
// Fields:
//  ID            – primary key identifier.
//  Code          – random UUID scan code.
//  OrderID       – order that minted the ticket.
//  UserID        – holder.
//  TicketClassID – ticket class.
//  AssetRef      – reference to the rendered QR image.
//  IsUsed/UsedAt – set when scanned at the door.
//  IsCancelled/CancelledAt – set by refund reversal.
type Ticket struct {
	ID            uint64     // tickets.id
	Code          string     // tickets.code
	OrderID       uint64     // tickets.order_id
	UserID        uint64     // tickets.user_id
	TicketClassID uint64     // tickets.ticket_class_id
	AssetRef      string     // tickets.asset_ref
	IsUsed        bool       // tickets.is_used
	UsedAt        *time.Time // tickets.used_at (nullable)
	IsCancelled   bool       // tickets.is_cancelled
	CancelledAt   *time.Time // tickets.cancelled_at (nullable)
	CreatedAt     time.Time  // tickets.created_at
}

// ScanResult is the outcome of presenting a ticket code at an event.
type ScanResult string

const (
	ScanUsed        ScanResult = "used"
	ScanAlreadyUsed ScanResult = "already_used"
	ScanCancelled   ScanResult = "cancelled"
	ScanWrongEvent  ScanResult = "wrong_event"
)
