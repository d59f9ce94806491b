package usecase

import (
	"testing"
	"time"

	authdomain "inbox-agent/internal/auth/domain"
	authdto "inbox-agent/internal/auth/dto"
	"inbox-agent/internal/auth/repository"
	"inbox-agent/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) (*authUsecase, *config.Config) {
	t.Helper()
	cfg := config.NewForTesting()
	hash, err := repository.HashPassword("letmein")
	require.NoError(t, err)
	cfg.AdminPasswordHash = hash
	return NewAuthUsecase(cfg).(*authUsecase), cfg
}

func TestLogin(t *testing.T) {
	u, _ := newTestAuth(t)

	resp, err := u.Login(&authdto.LoginRequest{Password: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	admin, err := u.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, authdomain.AdminSubject, admin.Subject)

	_, err = u.Login(&authdto.LoginRequest{Password: "nope"})
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
}

func TestLogin_DisabledWithoutHash(t *testing.T) {
	u := NewAuthUsecase(config.NewForTesting())
	_, err := u.Login(&authdto.LoginRequest{Password: "anything"})
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
}

func TestValidateToken_Rejects(t *testing.T) {
	u, cfg := newTestAuth(t)

	resp, err := u.Login(&authdto.LoginRequest{Password: "letmein"})
	require.NoError(t, err)

	u.now = func() time.Time { return time.Now().Add(2 * cfg.JWTAccessExpiry) }
	_, err = u.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized, "expired")

	u.now = time.Now
	_, err = u.ValidateToken("garbage")
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)

	other := NewAuthUsecase(&config.Config{JWTSecret: "other", JWTAccessExpiry: time.Minute, AdminPasswordHash: cfg.AdminPasswordHash})
	foreign, err := other.Login(&authdto.LoginRequest{Password: "letmein"})
	require.NoError(t, err)
	_, err = u.ValidateToken(foreign.AccessToken)
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized, "wrong signing secret")
}

func TestEmptySecretDisablesAdmin(t *testing.T) {
	_, cfg := newTestAuth(t)
	cfg.JWTSecret = ""
	u := NewAuthUsecase(cfg)

	_, err := u.Login(&authdto.LoginRequest{Password: "letmein"})
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   authdomain.AdminSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(""))
	require.NoError(t, err)
	_, err = u.ValidateToken(forged)
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
}
