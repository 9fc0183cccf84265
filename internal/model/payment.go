package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of one capture attempt.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is one capture attempt against an order.  An order has at most
// one success payment at a time; a refund flips it to refunded instead of
// deleting it.
type Payment struct {
	ID        uint64          // payments.id
	OrderID   uint64          // payments.order_id
	Provider  string          // payments.provider (momo, mgurush)
	Phone     string          // payments.phone
	Reference string          // payments.reference returned by the provider
	Amount    decimal.Decimal // payments.amount
	Status    PaymentStatus   // payments.status
	CreatedAt time.Time       // payments.created_at
	UpdatedAt time.Time       // payments.updated_at
}
