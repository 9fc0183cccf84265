package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/notify"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

// UserStore is the account storage used by AuthHandler.
type UserStore interface {
	Create(ctx context.Context, in repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	MarkVerified(ctx context.Context, email string) error
	SetPassword(ctx context.Context, email, plain string, cost int) error
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// OTPStore keeps email one-time codes.
type OTPStore interface {
	Create(ctx context.Context, otp model.EmailOTP) error
	Consume(ctx context.Context, email, code, purpose string, now time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	OTPs   OTPStore
	Mail   notify.Notifier
	Log    *zap.Logger
	Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, o OTPStore, mail notify.Notifier, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, OTPs: o, Mail: mail, Log: log,
		Now: func() time.Time { return time.Now().UTC() }}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // CUSTOMER | ORGANIZER
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type otpSendReq struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}
type otpVerifyReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
	NewPassword string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func unauthorized(c echo.Context, msg string) error {
	return jsonError(c, http.StatusUnauthorized, "unauthorized", msg)
}

func (h *AuthHandler) internal(c echo.Context, what string, err error) error {
	h.Log.Error(what, zap.Error(err))
	return jsonError(c, http.StatusInternalServerError, "internal", "internal error")
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// issue mints an access token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, fmt.Errorf("issue refresh: %w", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, fmt.Errorf("save refresh: %w", err)
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "valid email required")
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = model.RoleCustomer
	case model.RoleCustomer, model.RoleOrganizer:
	default:
		return badRequest(c, "role must be CUSTOMER or ORGANIZER")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email: req.Email, Password: req.Password, FullName: req.FullName, Phone: req.Phone, Role: role,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return jsonError(c, http.StatusConflict, "invalid_state", "email already exists")
		}
		return h.internal(c, "create user failed", err)
	}
	resp, err := h.issue(ctx, userPart{ID: uid, Email: req.Email, Role: role})
	if err != nil {
		return h.internal(c, "register", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "invalid credentials")
		}
		return h.internal(c, "load user failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return unauthorized(c, "invalid credentials")
	}
	if !u.IsActive {
		return jsonError(c, http.StatusForbidden, "forbidden", "account disabled")
	}
	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return h.internal(c, "login", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func bindRefresh(c echo.Context) (string, bool) {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	return raw, raw != ""
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, ok := bindRefresh(c)
	if !ok {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
	if err != nil {
		return unauthorized(c, "invalid refresh")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return h.internal(c, "revoke refresh failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "invalid refresh")
		}
		return h.internal(c, "load user failed", err)
	}
	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return h.internal(c, "refresh", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token and leaves the refresh token
// in place.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	raw, ok := bindRefresh(c)
	if !ok {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw), h.Now())
	if err != nil {
		return unauthorized(c, "invalid refresh")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "invalid refresh")
		}
		return h.internal(c, "load user failed", err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return h.internal(c, "issue access failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an access token is presented.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if raw, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer "); ok {
		if id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
			uid = id.UserID
		}
	}
	refreshToken, _ := bindRefresh(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now()); err != nil {
			return unauthorized(c, "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return h.internal(c, "logout failed", err)
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return h.internal(c, "logout failed", err)
		}
	default:
		return badRequest(c, "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "unknown user")
		}
		return h.internal(c, "load user failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          u.ID,
		"email":       u.Email,
		"full_name":   u.FullName,
		"phone":       u.Phone,
		"role":        u.Role,
		"is_verified": u.IsVerified,
	})
}

func otpPurpose(p string) (string, bool) {
	switch p = strings.ToLower(strings.TrimSpace(p)); p {
	case "":
		return model.OTPPurposeVerify, true
	case model.OTPPurposeVerify, model.OTPPurposeReset:
		return p, true
	}
	return "", false
}

// SendOTP mails a six digit code.  The response is the same whether or
// not the address has an account.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req otpSendReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := normalizeEmail(req.Email)
	purpose, ok := otpPurpose(req.Purpose)
	if email == "" || !ok {
		return badRequest(c, "email and a purpose of verify or reset required")
	}
	accepted := echo.Map{"status": "sent"}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusAccepted, accepted)
		}
		return h.internal(c, "load user failed", err)
	}
	code, err := utils.NewOTP()
	if err != nil {
		return h.internal(c, "generate otp failed", err)
	}
	now := h.Now()
	if err := h.OTPs.Create(ctx, model.EmailOTP{
		Email: email, Code: code, Purpose: purpose, ExpiresAt: now.Add(h.Cfg.OTPTTL), CreatedAt: now,
	}); err != nil {
		return h.internal(c, "store otp failed", err)
	}
	body := fmt.Sprintf("Your code is %s. It expires in %s.", code, h.Cfg.OTPTTL)
	if err := h.Mail.Send(ctx, email, "Your verification code", body); err != nil {
		h.Log.Warn("otp mail failed", zap.String("purpose", purpose), zap.Error(err))
		return jsonError(c, http.StatusBadGateway, "upstream_failure", "could not send code")
	}
	return c.JSON(http.StatusAccepted, accepted)
}

// VerifyOTP redeems a code.  A verify code marks the account verified; a
// reset code together with new_password replaces the password.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpVerifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	purpose, ok := otpPurpose(req.Purpose)
	if email == "" || code == "" || !ok {
		return badRequest(c, "email, code and a purpose of verify or reset required")
	}
	if purpose == model.OTPPurposeReset {
		if err := utils.CheckPassword(req.NewPassword); err != nil {
			return badRequest(c, "new_password: "+err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.OTPs.Consume(ctx, email, code, purpose, h.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return badRequest(c, "invalid or expired code")
		}
		return h.internal(c, "consume otp failed", err)
	}
	var err error
	if purpose == model.OTPPurposeReset {
		err = h.Users.SetPassword(ctx, email, req.NewPassword, h.Cfg.BcryptCost)
	} else {
		err = h.Users.MarkVerified(ctx, email)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return badRequest(c, "invalid or expired code")
		}
		return h.internal(c, "apply otp failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "purpose": purpose})
}
