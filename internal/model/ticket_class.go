package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketClass is a priced category of admission within one event, such as
// "VIP" or "General".  QuantitySold never exceeds QuantityTotal.
type TicketClass struct {
	ID            uint64          // ticket_classes.id
	EventID       uint64          // ticket_classes.event_id
	Name          string          // ticket_classes.name
	Price         decimal.Decimal // ticket_classes.price, DECIMAL(12,2)
	QuantityTotal int             // ticket_classes.quantity_total
	QuantitySold  int             // ticket_classes.quantity_sold
	CreatedAt     time.Time       // ticket_classes.created_at
	UpdatedAt     time.Time       // ticket_classes.updated_at
}

// Available returns the number of unsold units, never negative.
func (t TicketClass) Available() int {
	if n := t.QuantityTotal - t.QuantitySold; n > 0 {
		return n
	}
	return 0
}
