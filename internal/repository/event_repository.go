package repository

import (
	"context"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const eventColumns = `id, organizer_id, title, description, location, category, starts_at, ends_at, payout_done, created_at, updated_at`

func scanEvent(s rowScanner) (model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Location, &e.Category,
		&e.StartsAt, &e.EndsAt, &e.PayoutDone, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// InsertEvent creates an event and fills in its generated id.
func (t *sqlTx) InsertEvent(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (organizer_id, title, description, location, category, starts_at, ends_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, e.OrganizerID, e.Title, e.Description, e.Location, e.Category, e.StartsAt, e.EndsAt)
	if err != nil {
		return err
	}
	if e.ID, err = insertID(res); err != nil {
		return err
	}
	return nil
}

func (t *sqlTx) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	e, err := scanEvent(t.tx.QueryRowContext(ctx, q, id))
	return e, notFound(err)
}

// ListEvents returns every event ordered by start time.
func (t *sqlTx) ListEvents(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at ASC, id ASC`
	return t.queryEvents(ctx, q)
}

func (t *sqlTx) ListEventsByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = ? ORDER BY starts_at ASC, id ASC`
	return t.queryEvents(ctx, q, organizerID)
}

// LockEndedEventsAwaitingPayout locks every event that ended before now
// and has not yet produced a payout.
func (t *sqlTx) LockEndedEventsAwaitingPayout(ctx context.Context, now time.Time) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE ends_at < ? AND payout_done = 0 ORDER BY id FOR UPDATE`
	return t.queryEvents(ctx, q, now)
}

func (t *sqlTx) MarkEventPayoutDone(ctx context.Context, id uint64) error {
	const q = `UPDATE events SET payout_done = 1 WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, id))
}

func (t *sqlTx) queryEvents(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
