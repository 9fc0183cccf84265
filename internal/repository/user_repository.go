package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

const userColumns = `id, email, password_hash, full_name, phone, role, is_verified, is_active, created_at, updated_at`

// UserRepo reads and writes the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the registration fields.
type NewUser struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes the password, inserts the user and returns its id.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, phone, role) VALUES (?,?,?,?,?)",
		normalizeEmail(in.Email), hash, strings.TrimSpace(in.FullName), strings.TrimSpace(in.Phone), in.Role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return insertID(res)
}

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role,
		&u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// MarkVerified flags the account as email-verified.
func (r *UserRepo) MarkVerified(ctx context.Context, email string) error {
	return requireRow(r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=1 WHERE email=?", normalizeEmail(email)))
}

// EmailOf returns the address receipts for userID are sent to.
func (r *UserRepo) EmailOf(ctx context.Context, userID uint64) (string, error) {
	var email string
	err := r.DB.QueryRowContext(ctx, "SELECT email FROM users WHERE id=? LIMIT 1", userID).Scan(&email)
	return email, notFound(err)
}

// SetPassword replaces the password of the account registered under email.
func (r *UserRepo) SetPassword(ctx context.Context, email, plain string, cost int) error {
	hash, err := utils.HashPassword(plain, cost)
	if err != nil {
		return err
	}
	return requireRow(r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE email=?", hash, normalizeEmail(email)))
}
