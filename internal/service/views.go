package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Views serves the read-only buyer and organizer pages.
type Views struct {
	base
}

func (v *Views) ListMyOrders(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	var out []model.Order
	err := v.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.ListOrdersByUser(ctx, buyerID)
		return err
	})
	return out, err
}

func (v *Views) ListMyTickets(ctx context.Context, buyerID uint64) ([]model.Ticket, error) {
	var out []model.Ticket
	err := v.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.ListTicketsByUser(ctx, buyerID)
		return err
	})
	return out, err
}

func (v *Views) OrganizerWallet(ctx context.Context, organizerID uint64) (model.OrganizerWallet, error) {
	var w model.OrganizerWallet
	err := v.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		w, err = tx.GetOrganizerWallet(ctx, organizerID)
		return err
	})
	return w, err
}

func (v *Views) PlatformWallet(ctx context.Context) (model.PlatformWallet, error) {
	var w model.PlatformWallet
	err := v.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		w, err = tx.GetPlatformWallet(ctx)
		return err
	})
	return w, err
}

// Dashboard summarises an organizer's activity.
type Dashboard struct {
	Events         int
	PaidOrders     int
	TicketsSold    int
	TotalSales     decimal.Decimal
	Balance        decimal.Decimal
	PendingPayouts decimal.Decimal
	PaidPayouts    decimal.Decimal
}

func (v *Views) OrganizerDashboard(ctx context.Context, organizerID uint64) (Dashboard, error) {
	d := Dashboard{TotalSales: decimal.Zero, PendingPayouts: decimal.Zero, PaidPayouts: decimal.Zero}
	err := v.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		events, err := tx.ListEventsByOrganizer(ctx, organizerID)
		if err != nil {
			return err
		}
		d.Events = len(events)

		orders, err := tx.ListOrdersByOrganizer(ctx, organizerID, model.OrderPaid)
		if err != nil {
			return err
		}
		d.PaidOrders = len(orders)
		for _, o := range orders {
			d.TicketsSold += o.Quantity
			d.TotalSales = d.TotalSales.Add(o.TotalAmount)
		}

		w, err := tx.GetOrganizerWallet(ctx, organizerID)
		if err != nil {
			return err
		}
		d.Balance = w.Balance

		payouts, err := tx.ListPayoutsByOrganizer(ctx, organizerID)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			switch p.Status {
			case model.PayoutPending:
				d.PendingPayouts = d.PendingPayouts.Add(p.Amount)
			case model.PayoutPaid:
				d.PaidPayouts = d.PaidPayouts.Add(p.Amount)
			}
		}
		return nil
	})
	return d, err
}
