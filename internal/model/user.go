package model

import "time"

// Role names carried in the JWT "role" claim.
const (
	RoleCustomer  = "CUSTOMER"
	RoleOrganizer = "ORGANIZER"
)

// User represents an account as stored in the `users` table.  A user is
// either a customer (buys tickets) or an organizer (publishes events,
// approves refunds, scans tickets and receives payouts).
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name (optional).
//  Phone        – contact number, used as the default payment phone.
//  Role         – CUSTOMER or ORGANIZER.
//  IsVerified   – email ownership confirmed through an OTP.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Phone        string    // users.phone
	Role         string    // users.role
	IsVerified   bool      // users.is_verified
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// OTP purposes.
const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

// EmailOTP is a six digit one-time code mailed to an address.
type EmailOTP struct {
	ID        uint64     // email_otps.id
	Email     string     // email_otps.email
	Code      string     // email_otps.code
	Purpose   string     // email_otps.purpose
	ExpiresAt time.Time  // email_otps.expires_at
	UsedAt    *time.Time // email_otps.used_at (nullable)
	CreatedAt time.Time  // email_otps.created_at
}
