package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Catalog manages events and their ticket classes.
type Catalog struct {
	base
}

// EventInput describes a new event.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Category    string
	StartsAt    time.Time
	EndsAt      time.Time
}

// TicketClassInput describes a new ticket class.
type TicketClassInput struct {
	Name          string
	Price         decimal.Decimal
	QuantityTotal int
}

func (c *Catalog) CreateEvent(ctx context.Context, organizerID uint64, in EventInput) (model.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return model.Event{}, newError(KindValidation, "title is required")
	case in.StartsAt.IsZero() || in.EndsAt.IsZero():
		return model.Event{}, newError(KindValidation, "starts_at and ends_at are required")
	case !in.EndsAt.After(in.StartsAt):
		return model.Event{}, newError(KindValidation, "ends_at must be after starts_at")
	}
	e := model.Event{
		OrganizerID: organizerID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Category:    strings.TrimSpace(in.Category),
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
	}
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertEvent(ctx, &e)
	})
	return e, err
}

func (c *Catalog) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	var e model.Event
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		e, err = tx.GetEvent(ctx, id)
		return fromRepo(err, "event")
	})
	return e, err
}

func (c *Catalog) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.ListEvents(ctx)
		return err
	})
	return out, err
}

// ListTicketClasses returns the classes of an existing event.
func (c *Catalog) ListTicketClasses(ctx context.Context, eventID uint64) ([]model.TicketClass, error) {
	var out []model.TicketClass
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return fromRepo(err, "event")
		}
		var err error
		out, err = tx.ListTicketClasses(ctx, eventID)
		return err
	})
	return out, err
}

// CreateTicketClass adds a priced class to an event owned by organizerID.
func (c *Catalog) CreateTicketClass(ctx context.Context, organizerID, eventID uint64, in TicketClassInput) (model.TicketClass, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return model.TicketClass{}, newError(KindValidation, "name is required")
	case !in.Price.IsPositive():
		return model.TicketClass{}, newError(KindValidation, "price must be positive")
	case !in.Price.Equal(in.Price.Round(money.Places)):
		return model.TicketClass{}, newError(KindValidation, "price has more than %d decimals", money.Places)
	case in.QuantityTotal < 1:
		return model.TicketClass{}, newError(KindValidation, "quantity_total must be at least 1")
	}
	tc := model.TicketClass{EventID: eventID, Name: in.Name, Price: in.Price, QuantityTotal: in.QuantityTotal}
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return fromRepo(err, "event")
		}
		if ev.OrganizerID != organizerID {
			return newError(KindForbidden, "event %d is not yours", eventID)
		}
		return tx.InsertTicketClass(ctx, &tc)
	})
	return tc, err
}

// UpdateCapacity changes quantity_total.  It never drops below the number
// of tickets already sold.
func (c *Catalog) UpdateCapacity(ctx context.Context, organizerID, ticketClassID uint64, total int) (model.TicketClass, error) {
	if total < 1 {
		return model.TicketClass{}, newError(KindValidation, "quantity_total must be at least 1")
	}
	var tc model.TicketClass
	err := c.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if tc, err = tx.LockTicketClass(ctx, ticketClassID); err != nil {
			return fromRepo(err, "ticket class")
		}
		ev, err := tx.GetEvent(ctx, tc.EventID)
		if err != nil {
			return fromRepo(err, "event")
		}
		if ev.OrganizerID != organizerID {
			return newError(KindForbidden, "ticket class %d is not yours", ticketClassID)
		}
		if total < tc.QuantitySold {
			return newError(KindInvalidState, "%d ticket(s) already sold", tc.QuantitySold)
		}
		if err := tx.SetTicketClassTotal(ctx, tc.ID, total); err != nil {
			return fromRepo(err, "ticket class")
		}
		tc.QuantityTotal = total
		return nil
	})
	return tc, err
}
