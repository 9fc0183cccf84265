package handler

import (
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/service"
)

// Amounts leave the API as two-decimal strings.

type eventView struct {
	ID          uint64    `json:"id"`
	OrganizerID uint64    `json:"organizer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func toEventView(e model.Event) eventView {
	return eventView{
		ID: e.ID, OrganizerID: e.OrganizerID, Title: e.Title, Description: e.Description,
		Location: e.Location, Category: e.Category, StartsAt: e.StartsAt, EndsAt: e.EndsAt,
	}
}

type ticketClassView struct {
	ID            uint64 `json:"id"`
	EventID       uint64 `json:"event_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	QuantityTotal int    `json:"quantity_total"`
	QuantitySold  int    `json:"quantity_sold"`
	Available     int    `json:"available"`
}

func toTicketClassView(t model.TicketClass) ticketClassView {
	return ticketClassView{
		ID: t.ID, EventID: t.EventID, Name: t.Name, Price: t.Price.StringFixed(money.Places),
		QuantityTotal: t.QuantityTotal, QuantitySold: t.QuantitySold, Available: t.Available(),
	}
}

type orderView struct {
	ID              uint64     `json:"id"`
	TicketClassID   uint64     `json:"ticket_class_id"`
	Quantity        int        `json:"quantity"`
	Total           string     `json:"total"`
	Commission      string     `json:"commission"`
	OrganizerAmount string     `json:"organizer_amount"`
	Status          string     `json:"status"`
	RefundReason    string     `json:"refund_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
}

func toOrderView(o model.Order) orderView {
	return orderView{
		ID: o.ID, TicketClassID: o.TicketClassID, Quantity: o.Quantity,
		Total:           o.TotalAmount.StringFixed(money.Places),
		Commission:      o.CommissionAmount.StringFixed(money.Places),
		OrganizerAmount: o.OrganizerAmount.StringFixed(money.Places),
		Status:          string(o.Status), RefundReason: o.RefundReason,
		CreatedAt: o.CreatedAt, PaidAt: o.PaidAt, RefundedAt: o.RefundedAt,
	}
}

type ticketView struct {
	Code          string     `json:"code"`
	AssetRef      string     `json:"asset_ref"`
	OrderID       uint64     `json:"order_id,omitempty"`
	TicketClassID uint64     `json:"ticket_class_id,omitempty"`
	IsUsed        bool       `json:"is_used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	IsCancelled   bool       `json:"is_cancelled"`
}

func toTicketView(t model.Ticket) ticketView {
	return ticketView{
		Code: t.Code, AssetRef: t.AssetRef, OrderID: t.OrderID, TicketClassID: t.TicketClassID,
		IsUsed: t.IsUsed, UsedAt: t.UsedAt, IsCancelled: t.IsCancelled,
	}
}

type payoutView struct {
	ID        uint64     `json:"id"`
	EventID   *uint64    `json:"event_id,omitempty"`
	Amount    string     `json:"amount"`
	Status    string     `json:"status"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

func toPayoutView(p model.Payout) payoutView {
	return payoutView{
		ID: p.ID, EventID: p.EventID, Amount: p.Amount.StringFixed(money.Places),
		Status: string(p.Status), Note: p.Note, CreatedAt: p.CreatedAt, PaidAt: p.PaidAt,
	}
}

type dashboardView struct {
	Events         int    `json:"events"`
	PaidOrders     int    `json:"paid_orders"`
	TicketsSold    int    `json:"tickets_sold"`
	TotalSales     string `json:"total_sales"`
	Balance        string `json:"balance"`
	PendingPayouts string `json:"pending_payouts"`
	PaidPayouts    string `json:"paid_payouts"`
}

func toDashboardView(d service.Dashboard) dashboardView {
	return dashboardView{
		Events: d.Events, PaidOrders: d.PaidOrders, TicketsSold: d.TicketsSold,
		TotalSales:     d.TotalSales.StringFixed(money.Places),
		Balance:        d.Balance.StringFixed(money.Places),
		PendingPayouts: d.PendingPayouts.StringFixed(money.Places),
		PaidPayouts:    d.PaidPayouts.StringFixed(money.Places),
	}
}

func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
