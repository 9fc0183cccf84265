package handler_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
	"github.com/iliyamo/ticket-marketplace/internal/router"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byMail map[string]*model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byMail: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, in repository.NewUser, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byMail[in.Email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.byMail[in.Email] = &model.User{ID: f.nextID, Email: in.Email, PasswordHash: hash, Role: in.Role, IsActive: true}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byMail[email]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byMail {
		if u.ID == id {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) MarkVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byMail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsVerified = true
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, email, plain string, cost int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byMail[email]
	if !ok {
		return repository.ErrNotFound
	}
	hash, err := utils.HashPassword(plain, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

type storedToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*storedToken
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[hash] = &storedToken{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok || t.revoked || !t.exp.After(now) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byHash[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byHash {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

type fakeOTPs struct {
	mu    sync.Mutex
	codes []model.EmailOTP
}

func (f *fakeOTPs) Create(_ context.Context, otp model.EmailOTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, otp)
	return nil
}

func (f *fakeOTPs) Consume(_ context.Context, email, code, purpose string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.codes {
		o := &f.codes[i]
		if o.Email == email && o.Code == code && o.Purpose == purpose && o.UsedAt == nil && o.ExpiresAt.After(now) {
			o.UsedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

type mailbox struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (m *mailbox) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+body)
	return nil
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func (m *mailbox) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := sixDigits.FindString(m.sent[len(m.sent)-1])
	require.NotEmpty(t, code)
	return code
}

type authServer struct {
	e     *echo.Echo
	users *fakeUsers
	mail  *mailbox
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      testSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
		OTPTTL:         10 * time.Minute,
	}
	users := newFakeUsers()
	mail := &mailbox{}
	h := handler.NewAuthHandler(cfg, users, &fakeTokens{byHash: map[string]*storedToken{}}, &fakeOTPs{}, mail, zap.NewNop())
	e := echo.New()
	router.RegisterAuth(e, h, testSecret, router.Guards{})
	return &authServer{e: e, users: users, mail: mail}
}

func (s *authServer) register(t *testing.T, email, role string) map[string]any {
	t.Helper()
	rec := do(t, s.e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email": email, "password": "correct-horse", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func field(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		cur = cur.(map[string]any)[p]
	}
	return cur
}

func TestRegister(t *testing.T) {
	s := newAuthServer(t)
	body := s.register(t, "Org@Example.com", "organizer")

	assert.Equal(t, "org@example.com", field(body, "user", "email"))
	assert.Equal(t, model.RoleOrganizer, field(body, "user", "role"))
	id, err := utils.ParseAccessToken(testSecret, field(body, "access", "token").(string))
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, id.Role)

	rec := do(t, s.e, http.MethodPost, "/v1/auth/register", "", map[string]any{"email": "org@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/register", "", map[string]any{"email": "x@example.com", "password": "correct-horse", "role": "ADMIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/register", "", map[string]any{"email": "y@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newAuthServer(t)
	s.register(t, "buyer@example.com", "")

	rec := do(t, s.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "buyer@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleCustomer, field(decode(t, rec), "user", "role"))

	rec = do(t, s.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "buyer@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "nobody@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	s := newAuthServer(t)
	body := s.register(t, "buyer@example.com", "")
	refresh := field(body, "refresh", "token").(string)

	rec := do(t, s.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := field(decode(t, rec), "refresh", "token").(string)
	assert.NotEqual(t, refresh, rotated)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/refresh-access", "", map[string]any{"refresh_token": rotated})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, field(decode(t, rec), "access", "token"))

	rec = do(t, s.e, http.MethodPost, "/v1/auth/refresh-access", "", map[string]any{"refresh_token": rotated})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	s := newAuthServer(t)
	body := s.register(t, "buyer@example.com", "")
	refresh := field(body, "refresh", "token").(string)
	access := field(body, "access", "token").(string)

	rec := do(t, s.e, http.MethodPost, "/v1/auth/logout", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/logout", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	s := newAuthServer(t)
	body := s.register(t, "buyer@example.com", "")

	rec := do(t, s.e, http.MethodGet, "/v1/me", field(body, "access", "token").(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "buyer@example.com", me["email"])
	assert.Equal(t, false, me["is_verified"])

	rec = do(t, s.e, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOTPVerify(t *testing.T) {
	s := newAuthServer(t)
	s.register(t, "buyer@example.com", "")

	rec := do(t, s.e, http.MethodPost, "/v1/auth/otp/send", "", map[string]any{"email": "buyer@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	code := s.mail.lastCode(t)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{"email": "buyer@example.com", "code": "000000x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{"email": "buyer@example.com", "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u, err := s.users.GetByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{"email": "buyer@example.com", "code": code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOTPReset(t *testing.T) {
	s := newAuthServer(t)
	s.register(t, "buyer@example.com", "")

	rec := do(t, s.e, http.MethodPost, "/v1/auth/otp/send", "", map[string]any{"email": "buyer@example.com", "purpose": "reset"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	code := s.mail.lastCode(t)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{
		"email": "buyer@example.com", "code": code, "purpose": "reset", "new_password": "battery-staple",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "buyer@example.com", "password": "battery-staple"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTPSend_UnknownEmailIsSilent(t *testing.T) {
	s := newAuthServer(t)

	rec := do(t, s.e, http.MethodPost, "/v1/auth/otp/send", "", map[string]any{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, s.mail.sent)

	rec = do(t, s.e, http.MethodPost, "/v1/auth/otp/send", "", map[string]any{"email": "ghost@example.com", "purpose": "login"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOTPSend_MailFailure(t *testing.T) {
	s := newAuthServer(t)
	s.register(t, "buyer@example.com", "")
	s.mail.err = errors.New("smtp: 421 service not available")

	rec := do(t, s.e, http.MethodPost, "/v1/auth/otp/send", "", map[string]any{"email": "buyer@example.com"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "upstream_failure"))
}
