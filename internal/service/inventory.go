package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Inventory maintains quantity_sold per ticket class.  Both operations run
// inside the caller's transaction and read the class under its row lock,
// so 0 <= sold <= total holds under any interleaving.
type Inventory struct {
	log *zap.Logger
}

// Reserve adds quantity to sold, or fails with OutOfStock when fewer than
// quantity tickets remain.
func (i *Inventory) Reserve(ctx context.Context, tx repository.Tx, ticketClassID uint64, quantity int) (model.TicketClass, error) {
	if quantity < 1 {
		return model.TicketClass{}, newError(KindValidation, "quantity must be at least 1")
	}
	tc, err := tx.LockTicketClass(ctx, ticketClassID)
	if err != nil {
		return tc, fromRepo(err, "ticket class")
	}
	if avail := tc.Available(); quantity > avail {
		return tc, newError(KindOutOfStock, "%d ticket(s) requested, %d available", quantity, avail)
	}
	tc.QuantitySold += quantity
	if err := tx.SetTicketClassSold(ctx, tc.ID, tc.QuantitySold); err != nil {
		return tc, fromRepo(err, "ticket class")
	}
	return tc, nil
}

// Release subtracts quantity from sold.  A release that would go below
// zero is clamped and logged.
func (i *Inventory) Release(ctx context.Context, tx repository.Tx, ticketClassID uint64, quantity int) (model.TicketClass, error) {
	tc, err := tx.LockTicketClass(ctx, ticketClassID)
	if err != nil {
		return tc, fromRepo(err, "ticket class")
	}
	sold := tc.QuantitySold - quantity
	if sold < 0 {
		i.log.Error("inventory invariant violated: release below zero",
			zap.Uint64("ticket_class_id", tc.ID),
			zap.Int("sold", tc.QuantitySold),
			zap.Int("release", quantity))
		sold = 0
	}
	tc.QuantitySold = sold
	if err := tx.SetTicketClassSold(ctx, tc.ID, sold); err != nil {
		return tc, fromRepo(err, "ticket class")
	}
	return tc, nil
}
