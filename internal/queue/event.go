// Package queue carries marketplace domain events over RabbitMQ: a
// publisher used after settlement and refund commits, and a consumer that
// turns those events into receipt emails.
package queue

import (
	"fmt"
	"strings"
)

// Routing keys on the events exchange.
const (
	RoutingOrderPaid     = "order.paid"
	RoutingOrderRefunded = "order.refunded"
)

// OrderPaidEvent is published once per order when it transitions to paid.
// Amounts are decimal strings with two places.
type OrderPaidEvent struct {
	OrderID          uint64   `json:"order_id"`
	UserID           uint64   `json:"user_id"`
	Email            string   `json:"email"`
	EventID          uint64   `json:"event_id"`
	EventTitle       string   `json:"event_title"`
	TicketClass      string   `json:"ticket_class"`
	Quantity         int      `json:"quantity"`
	TotalAmount      string   `json:"total_amount"`
	CommissionAmount string   `json:"commission_amount"`
	OrganizerAmount  string   `json:"organizer_amount"`
	Currency         string   `json:"currency"`
	TicketCodes      []string `json:"ticket_codes"`
	PaidAt           string   `json:"paid_at"`
}

// OrderRefundedEvent is published when a refund is approved.
type OrderRefundedEvent struct {
	OrderID     uint64 `json:"order_id"`
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	Quantity    int    `json:"quantity"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	RefundedAt  string `json:"refunded_at"`
}

// Receipt renders the buyer-facing receipt for a paid order.
func (e OrderPaidEvent) Receipt() (subject, body string) {
	subject = fmt.Sprintf("Your tickets for %s (order #%d)", e.EventTitle, e.OrderID)
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your purchase.\n\n")
	fmt.Fprintf(&b, "Event: %s\nTicket: %s x %d\nTotal: %s %s\n\n", e.EventTitle, e.TicketClass, e.Quantity, e.TotalAmount, e.Currency)
	b.WriteString("Ticket codes:\n")
	for _, c := range e.TicketCodes {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	return subject, b.String()
}

// Receipt renders the refund confirmation.
func (e OrderRefundedEvent) Receipt() (subject, body string) {
	subject = fmt.Sprintf("Refund approved for order #%d", e.OrderID)
	body = fmt.Sprintf("Your refund of %s %s for %d ticket(s) to %s has been approved.\nThe tickets have been cancelled.\n",
		e.TotalAmount, e.Currency, e.Quantity, e.EventTitle)
	return subject, body
}
