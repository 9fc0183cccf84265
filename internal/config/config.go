// Package config loads application configuration from environment
// variables.  A .env file is honored when present.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/money"
)

// Config holds all runtime configuration values.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	DBMigrate      bool // DB_MIGRATE applies the embedded schema on startup
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	CommissionRate decimal.Decimal // COMMISSION_RATE, fraction in [0,1)
	Currency       string

	PayoutSweepEnabled  bool
	PayoutSweepInterval time.Duration

	Mail   MailConfig
	QR     QRConfig
	Broker BrokerConfig
	OTPTTL time.Duration
}

// MailConfig configures the SMTP notifier.  An empty Host selects the
// logging notifier instead.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// QRConfig controls where rendered ticket codes are written and how they
// are addressed in API responses.
type QRConfig struct {
	AssetDir string
	BaseURL  string
}

// BrokerConfig configures RabbitMQ domain events.
type BrokerConfig struct {
	URL          string
	Enabled      bool
	Exchange     string
	ReceiptQueue string
}

// Load reads the configuration.  Every missing or malformed required
// variable is reported in the returned error.
func Load() (Config, error) {
	var req required
	cfg := Config{
		Env:            req.str("APP_ENV"),
		Port:           req.str("APP_PORT"),
		DBUser:         req.str("DB_USER"),
		DBPass:         envStr("DB_PASS", ""),
		DBHost:         req.str("DB_HOST"),
		DBPort:         req.str("DB_PORT"),
		DBName:         req.str("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", false),
		JWTSecret:      req.str("JWT_SECRET"),
		AccessTTLMin:   req.int("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: req.int("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     req.int("BCRYPT_COST"),

		Currency: envStr("CURRENCY", "SSP"),

		PayoutSweepEnabled:  envBool("PAYOUT_SWEEP_ENABLED", true),
		PayoutSweepInterval: envDur("PAYOUT_SWEEP_INTERVAL", time.Hour),

		Mail: MailConfig{
			Host:     envStr("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envStr("SMTP_USERNAME", ""),
			Password: envStr("SMTP_PASSWORD", ""),
			From:     envStr("MAIL_FROM", "no-reply@tickets.local"),
			FromName: envStr("MAIL_FROM_NAME", "Tickets"),
		},
		QR: QRConfig{
			AssetDir: envStr("QR_ASSET_DIR", "media/qr"),
			BaseURL:  envStr("QR_ASSET_BASE_URL", "/media/qr"),
		},
		Broker: BrokerConfig{
			URL:          envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
			Enabled:      envBool("EVENTS_ENABLED", true),
			Exchange:     envStr("EVENTS_EXCHANGE", "marketplace.events"),
			ReceiptQueue: envStr("RECEIPT_QUEUE", "marketplace.receipts"),
		},
		OTPTTL: envDur("OTP_TTL", 10*time.Minute),
	}

	rate, err := money.ParseRate(envStr("COMMISSION_RATE", money.DefaultCommissionRate.String()))
	if err != nil {
		req.errs = append(req.errs, fmt.Errorf("COMMISSION_RATE: %w", err))
	}
	cfg.CommissionRate = rate
	if cfg.PayoutSweepInterval <= 0 {
		cfg.PayoutSweepInterval = time.Hour
	}
	return cfg, req.err()
}

// EventsEnabled reports whether domain events should go to RabbitMQ.
func (c Config) EventsEnabled() bool { return c.Broker.Enabled && c.Broker.URL != "" }
