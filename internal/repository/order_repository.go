package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const orderColumns = `id, user_id, ticket_class_id, quantity, total_amount, commission_amount, organizer_amount, commission_rate, status, refund_reason, created_at, updated_at, paid_at, refunded_at`

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o                  model.Order
		status             string
		paidAt, refundedAt sql.NullTime
	)
	err := s.Scan(&o.ID, &o.UserID, &o.TicketClassID, &o.Quantity, &o.TotalAmount, &o.CommissionAmount,
		&o.OrganizerAmount, &o.CommissionRate, &status, &o.RefundReason, &o.CreatedAt, &o.UpdatedAt,
		&paidAt, &refundedAt)
	if err != nil {
		return o, err
	}
	o.Status = model.OrderStatus(status)
	o.PaidAt = nullTimePtr(paidAt)
	o.RefundedAt = nullTimePtr(refundedAt)
	return o, nil
}

// InsertOrder creates a pending order and sets its id.
func (t *sqlTx) InsertOrder(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (user_id, ticket_class_id, quantity, total_amount, commission_amount, organizer_amount, commission_rate, status, refund_reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '')`
	res, err := t.tx.ExecContext(ctx, q, o.UserID, o.TicketClassID, o.Quantity, o.TotalAmount,
		o.CommissionAmount, o.OrganizerAmount, o.CommissionRate, string(o.Status))
	if err != nil {
		return err
	}
	o.ID, err = insertID(res)
	return err
}

// LockOrder is the first lock taken by capture, refund request and refund
// approval, which keeps all three serialized per order.
func (t *sqlTx) LockOrder(ctx context.Context, id uint64) (model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	o, err := scanOrder(t.tx.QueryRowContext(ctx, q, id))
	return o, notFound(err)
}

// UpdateOrder persists the mutable lifecycle fields of o.  Amounts are
// fixed at creation and never rewritten.
func (t *sqlTx) UpdateOrder(ctx context.Context, o model.Order) error {
	const q = `UPDATE orders SET status = ?, refund_reason = ?, paid_at = ?, refunded_at = ? WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, string(o.Status), o.RefundReason,
		timeArg(o.PaidAt), timeArg(o.RefundedAt), o.ID))
}

func (t *sqlTx) ListOrdersByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return t.queryOrders(ctx, q, userID)
}

// ListOrdersByOrganizer returns orders in the given status for ticket
// classes of events owned by organizerID.
func (t *sqlTx) ListOrdersByOrganizer(ctx context.Context, organizerID uint64, status model.OrderStatus) ([]model.Order, error) {
	const q = `SELECT o.id, o.user_id, o.ticket_class_id, o.quantity, o.total_amount, o.commission_amount, o.organizer_amount, o.commission_rate, o.status, o.refund_reason, o.created_at, o.updated_at, o.paid_at, o.refunded_at
FROM orders o
JOIN ticket_classes tc ON tc.id = o.ticket_class_id
JOIN events e ON e.id = tc.event_id
WHERE e.organizer_id = ? AND o.status = ?
ORDER BY o.created_at DESC, o.id DESC`
	return t.queryOrders(ctx, q, organizerID, string(status))
}

// SumPaidOrganizerAmount totals organizer_amount over the paid orders of
// an event.  Refunded and refund-requested orders are excluded.
func (t *sqlTx) SumPaidOrganizerAmount(ctx context.Context, eventID uint64) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(o.organizer_amount), 0)
FROM orders o
JOIN ticket_classes tc ON tc.id = o.ticket_class_id
WHERE tc.event_id = ? AND o.status = 'paid'`
	var sum decimal.Decimal
	if err := t.tx.QueryRowContext(ctx, q, eventID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (t *sqlTx) queryOrders(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
