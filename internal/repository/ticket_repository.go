package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const ticketColumns = `id, code, order_id, user_id, ticket_class_id, asset_ref, is_used, used_at, is_cancelled, cancelled_at, created_at`

func scanTicket(s rowScanner) (model.Ticket, error) {
	var (
		tk                  model.Ticket
		usedAt, cancelledAt sql.NullTime
	)
	err := s.Scan(&tk.ID, &tk.Code, &tk.OrderID, &tk.UserID, &tk.TicketClassID, &tk.AssetRef,
		&tk.IsUsed, &usedAt, &tk.IsCancelled, &cancelledAt, &tk.CreatedAt)
	if err != nil {
		return tk, err
	}
	tk.UsedAt = nullTimePtr(usedAt)
	tk.CancelledAt = nullTimePtr(cancelledAt)
	return tk, nil
}

// InsertTickets writes all tickets in a single multi-row statement.  A
// simple multi-row INSERT receives consecutive auto-increment ids, so ids
// are assigned from LastInsertId.  An empty slice is a no-op.
func (t *sqlTx) InsertTickets(ctx context.Context, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO tickets (code, order_id, user_id, ticket_class_id, asset_ref, created_at) VALUES `)
	args := make([]any, 0, len(tickets)*6)
	for i, tk := range tickets {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, tk.Code, tk.OrderID, tk.UserID, tk.TicketClassID, tk.AssetRef, tk.CreatedAt)
	}
	res, err := t.tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	first, err := insertID(res)
	if err != nil {
		return err
	}
	for i, tk := range tickets {
		tk.ID = first + uint64(i)
	}
	return nil
}

func (t *sqlTx) ListTicketsByOrder(ctx context.Context, orderID uint64) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE order_id = ? ORDER BY id`
	return t.queryTickets(ctx, q, orderID)
}

func (t *sqlTx) ListTicketsByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return t.queryTickets(ctx, q, userID)
}

func (t *sqlTx) CountUsedTicketsByOrder(ctx context.Context, orderID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets WHERE order_id = ? AND is_used = 1`
	var n int
	err := t.tx.QueryRowContext(ctx, q, orderID).Scan(&n)
	return n, err
}

// LockCancellableTickets locks up to limit of the buyer's unused,
// uncancelled tickets for a ticket class, most recently created first.
func (t *sqlTx) LockCancellableTickets(ctx context.Context, userID, ticketClassID uint64, limit int) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = ? AND ticket_class_id = ? AND is_cancelled = 0 AND is_used = 0 ORDER BY created_at DESC, id DESC LIMIT ? FOR UPDATE`
	return t.queryTickets(ctx, q, userID, ticketClassID, limit)
}

// CancelTickets soft-cancels the given tickets.  Rows are never deleted.
func (t *sqlTx) CancelTickets(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := `UPDATE tickets SET is_cancelled = 1, cancelled_at = ? WHERE id IN (` + placeholders + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

func (t *sqlTx) LockTicketByCode(ctx context.Context, code string) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE code = ? FOR UPDATE`
	tk, err := scanTicket(t.tx.QueryRowContext(ctx, q, code))
	return tk, notFound(err)
}

func (t *sqlTx) MarkTicketUsed(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE tickets SET is_used = 1, used_at = ? WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, at, id))
}

func (t *sqlTx) queryTickets(ctx context.Context, q string, args ...any) ([]model.Ticket, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}
