package repository

import (
	"context"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const ticketClassColumns = `id, event_id, name, price, quantity_total, quantity_sold, created_at, updated_at`

func scanTicketClass(s rowScanner) (model.TicketClass, error) {
	var tc model.TicketClass
	err := s.Scan(&tc.ID, &tc.EventID, &tc.Name, &tc.Price, &tc.QuantityTotal, &tc.QuantitySold, &tc.CreatedAt, &tc.UpdatedAt)
	return tc, err
}

func (t *sqlTx) InsertTicketClass(ctx context.Context, tc *model.TicketClass) error {
	const q = `INSERT INTO ticket_classes (event_id, name, price, quantity_total, quantity_sold) VALUES (?, ?, ?, ?, 0)`
	res, err := t.tx.ExecContext(ctx, q, tc.EventID, tc.Name, tc.Price, tc.QuantityTotal)
	if err != nil {
		return err
	}
	tc.ID, err = insertID(res)
	return err
}

// GetTicketClass reads a ticket class without locking it.
func (t *sqlTx) GetTicketClass(ctx context.Context, id uint64) (model.TicketClass, error) {
	const q = `SELECT ` + ticketClassColumns + ` FROM ticket_classes WHERE id = ?`
	tc, err := scanTicketClass(t.tx.QueryRowContext(ctx, q, id))
	return tc, notFound(err)
}

// LockTicketClass reads a ticket class and holds its row lock until the
// transaction ends.  All reads of quantity_sold that lead to a write must
// go through here.
func (t *sqlTx) LockTicketClass(ctx context.Context, id uint64) (model.TicketClass, error) {
	const q = `SELECT ` + ticketClassColumns + ` FROM ticket_classes WHERE id = ? FOR UPDATE`
	tc, err := scanTicketClass(t.tx.QueryRowContext(ctx, q, id))
	return tc, notFound(err)
}

func (t *sqlTx) ListTicketClasses(ctx context.Context, eventID uint64) ([]model.TicketClass, error) {
	const q = `SELECT ` + ticketClassColumns + ` FROM ticket_classes WHERE event_id = ? ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TicketClass
	for rows.Next() {
		tc, err := scanTicketClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// SetTicketClassSold writes quantity_sold.  The CHECK constraint on the
// table rejects values above quantity_total.
func (t *sqlTx) SetTicketClassSold(ctx context.Context, id uint64, sold int) error {
	const q = `UPDATE ticket_classes SET quantity_sold = ? WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, sold, id))
}

func (t *sqlTx) SetTicketClassTotal(ctx context.Context, id uint64, total int) error {
	const q = `UPDATE ticket_classes SET quantity_total = ? WHERE id = ? AND quantity_sold <= ?`
	err := requireRow(t.tx.ExecContext(ctx, q, total, id, total))
	if err == ErrNotFound {
		return ErrConflict
	}
	return err
}
