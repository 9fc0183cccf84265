package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformWallet is the single platform commission balance.  The row is
// created once at startup; it is never created lazily.
type PlatformWallet struct {
	Balance   decimal.Decimal // platform_wallet.balance
	UpdatedAt time.Time       // platform_wallet.updated_at
}

// OrganizerWallet is the running balance owed to one organizer.  The
// balance is a bookkeeping figure and may be negative when a refund is
// reversed after the organizer has already been paid out.
type OrganizerWallet struct {
	OrganizerID uint64          // organizer_wallets.organizer_id
	Balance     decimal.Decimal // organizer_wallets.balance
	UpdatedAt   time.Time       // organizer_wallets.updated_at
}

// WalletCredit marks that an order's settlement has been credited to the
// wallets.  OrderID is the primary key, so an order can be credited at
// most once; ReversedAt is set when the refund reversal debits it back.
type WalletCredit struct {
	OrderID          uint64          // wallet_credits.order_id
	OrganizerID      uint64          // wallet_credits.organizer_id
	CommissionAmount decimal.Decimal // wallet_credits.commission_amount
	OrganizerAmount  decimal.Decimal // wallet_credits.organizer_amount
	CreditedAt       time.Time       // wallet_credits.credited_at
	ReversedAt       *time.Time      // wallet_credits.reversed_at (nullable)
}
