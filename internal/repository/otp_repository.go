package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// OTPRepo stores one-time email codes.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create records a new code.  Earlier unused codes for the same email and
// purpose are invalidated so only the latest one can be redeemed.
func (r *OTPRepo) Create(ctx context.Context, otp model.EmailOTP) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"UPDATE email_otps SET used_at=? WHERE email=? AND purpose=? AND used_at IS NULL",
		otp.CreatedAt, normalizeEmail(otp.Email), otp.Purpose); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO email_otps (email, code, purpose, expires_at, created_at) VALUES (?,?,?,?,?)",
		normalizeEmail(otp.Email), otp.Code, otp.Purpose, otp.ExpiresAt, otp.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MaxOTPAttempts is how many wrong guesses a code survives.
const MaxOTPAttempts = 5

// Consume marks a matching, unexpired, unused code as used.  It returns
// ErrNotFound when no such code exists.  A miss counts against the live
// code for that email and purpose; once it reaches MaxOTPAttempts the
// code can no longer be redeemed.
func (r *OTPRepo) Consume(ctx context.Context, email, code, purpose string, now time.Time) error {
	email = normalizeEmail(email)
	err := requireRow(r.DB.ExecContext(ctx,
		"UPDATE email_otps SET used_at=? WHERE email=? AND code=? AND purpose=? AND used_at IS NULL AND expires_at > ? AND attempts < ? ORDER BY id DESC LIMIT 1",
		now, email, code, purpose, now, MaxOTPAttempts))
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE email_otps SET attempts=attempts+1 WHERE email=? AND purpose=? AND used_at IS NULL AND expires_at > ?",
		email, purpose, now); err != nil {
		return err
	}
	return ErrNotFound
}

// PurgeExpired deletes codes that were redeemed or expired before now.
func (r *OTPRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM email_otps WHERE used_at IS NOT NULL OR expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
