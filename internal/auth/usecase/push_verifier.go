package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "inbox-agent/internal/auth/domain"
	"inbox-agent/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"
)

// NewPushVerifier selects the verifier for cfg.PushAuthMode.
func NewPushVerifier(cfg *config.Config) (PushVerifier, error) {
	switch cfg.PushAuthMode {
	case config.PushAuthOIDC:
		if cfg.PushAudience == "" || cfg.PushExpectedEmail == "" {
			return nil, errors.New("oidc push auth needs an audience and an expected email")
		}
		return NewOIDCVerifier(cfg.PushAudience, cfg.PushExpectedIssuer, cfg.PushExpectedEmail), nil
	case config.PushAuthHMAC:
		if cfg.PushHMACSecret == "" || cfg.PushExpectedEmail == "" {
			return nil, errors.New("hmac push auth needs a secret and an expected email")
		}
		return NewHMACVerifier(cfg.PushHMACSecret, cfg.PushExpectedIssuer, cfg.PushExpectedEmail), nil
	case config.PushAuthDisabled:
		return disabledVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported push auth mode: %s", cfg.PushAuthMode)
	}
}

// OIDCVerifier checks Google-signed OIDC tokens attached by Pub/Sub push subscriptions.
type OIDCVerifier struct {
	audience string
	issuer   string
	email    string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewOIDCVerifier(audience, issuer, email string) *OIDCVerifier {
	return &OIDCVerifier{
		audience: audience,
		issuer:   issuer,
		email:    email,
		validate: idtoken.Validate,
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, bearerToken string) error {
	if bearerToken == "" {
		return authdomain.NewAuthError("missing bearer token", nil)
	}
	if v.audience == "" || v.email == "" {
		return authdomain.NewAuthError("push verifier has no expected audience or email", nil)
	}

	payload, err := v.validate(ctx, bearerToken, v.audience)
	if err != nil {
		return authdomain.NewAuthError("invalid push token", err)
	}
	if !issuerMatches(payload.Issuer, v.issuer) {
		return authdomain.NewAuthError("unexpected issuer "+payload.Issuer, nil)
	}

	email, _ := payload.Claims["email"].(string)
	if !strings.EqualFold(email, v.email) {
		return authdomain.NewAuthError("unexpected email "+email, nil)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return authdomain.NewAuthError("email not verified", nil)
	}
	return nil
}

// HMACVerifier accepts HS256 tokens signed with a shared secret. It exists for
// deployments where the push sender is not Google, and for local testing.
type HMACVerifier struct {
	secret []byte
	issuer string
	email  string
}

type pushClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewHMACVerifier(secret, issuer, email string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer, email: email}
}

func (v *HMACVerifier) Verify(_ context.Context, bearerToken string) error {
	if bearerToken == "" {
		return authdomain.NewAuthError("missing bearer token", nil)
	}
	if len(v.secret) == 0 || v.email == "" {
		return authdomain.NewAuthError("push verifier has no secret or expected email", nil)
	}

	claims := &pushClaims{}
	_, err := jwt.ParseWithClaims(bearerToken, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return authdomain.NewAuthError("invalid push token", err)
	}

	if !issuerMatches(claims.Issuer, v.issuer) {
		return authdomain.NewAuthError("unexpected issuer "+claims.Issuer, nil)
	}
	if !strings.EqualFold(claims.Email, v.email) {
		return authdomain.NewAuthError("unexpected email "+claims.Email, nil)
	}
	return nil
}

// SignHMACPushToken issues a token HMACVerifier accepts. Used by tests and local tooling.
func SignHMACPushToken(secret, issuer, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := pushClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type disabledVerifier struct{}

func (disabledVerifier) Verify(context.Context, string) error { return nil }

// issuerMatches treats "accounts.google.com" and "https://accounts.google.com" as equal.
func issuerMatches(got, want string) bool {
	if want == "" {
		return true
	}
	normalize := func(s string) string { return strings.TrimPrefix(strings.TrimSpace(s), "https://") }
	return normalize(got) == normalize(want)
}

// IsAuthError reports whether err is a rejected credential.
func IsAuthError(err error) bool {
	return errors.Is(err, authdomain.ErrUnauthorized)
}
