package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const payoutColumns = `id, organizer_id, event_id, amount, status, note, created_at, paid_at`

func scanPayout(s rowScanner) (model.Payout, error) {
	var (
		p       model.Payout
		eventID sql.NullInt64
		status  string
		paidAt  sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.OrganizerID, &eventID, &p.Amount, &status, &p.Note, &p.CreatedAt, &paidAt); err != nil {
		return p, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		p.EventID = &id
	}
	p.Status = model.PayoutStatus(status)
	p.PaidAt = nullTimePtr(paidAt)
	return p, nil
}

func (t *sqlTx) InsertPayout(ctx context.Context, p *model.Payout) error {
	const q = `INSERT INTO payouts (organizer_id, event_id, amount, status, note) VALUES (?, ?, ?, ?, ?)`
	var eventID any
	if p.EventID != nil {
		eventID = *p.EventID
	}
	res, err := t.tx.ExecContext(ctx, q, p.OrganizerID, eventID, p.Amount, string(p.Status), p.Note)
	if err != nil {
		return err
	}
	p.ID, err = insertID(res)
	return err
}

// LockPendingPayouts locks every pending payout, oldest first.
func (t *sqlTx) LockPendingPayouts(ctx context.Context) ([]model.Payout, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payouts WHERE status = 'pending' ORDER BY id FOR UPDATE`
	return t.queryPayouts(ctx, q)
}

func (t *sqlTx) UpdatePayoutStatus(ctx context.Context, id uint64, status model.PayoutStatus, paidAt *time.Time) error {
	const q = `UPDATE payouts SET status = ?, paid_at = ? WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, string(status), timeArg(paidAt), id))
}

func (t *sqlTx) ListPayoutsByOrganizer(ctx context.Context, organizerID uint64) ([]model.Payout, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payouts WHERE organizer_id = ? ORDER BY created_at DESC, id DESC`
	return t.queryPayouts(ctx, q, organizerID)
}

func (t *sqlTx) queryPayouts(ctx context.Context, q string, args ...any) ([]model.Payout, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
