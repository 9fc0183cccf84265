package repository

import (
	"context"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// InsertPayment records a payment attempt and sets its id.
func (t *sqlTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (order_id, provider, phone, reference, amount, status) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, p.OrderID, p.Provider, p.Phone, p.Reference, p.Amount, string(p.Status))
	if err != nil {
		return err
	}
	p.ID, err = insertID(res)
	return err
}

// LockSuccessfulPayment locks the single success payment of an order.
func (t *sqlTx) LockSuccessfulPayment(ctx context.Context, orderID uint64) (model.Payment, error) {
	const q = `SELECT id, order_id, provider, phone, reference, amount, status, created_at, updated_at FROM payments WHERE order_id = ? AND status = 'success' ORDER BY id DESC LIMIT 1 FOR UPDATE`
	var (
		p      model.Payment
		status string
	)
	err := t.tx.QueryRowContext(ctx, q, orderID).Scan(&p.ID, &p.OrderID, &p.Provider, &p.Phone,
		&p.Reference, &p.Amount, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, notFound(err)
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

func (t *sqlTx) UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	const q = `UPDATE payments SET status = ? WHERE id = ?`
	return requireRow(t.tx.ExecContext(ctx, q, string(status), id))
}
