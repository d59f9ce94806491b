package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "inbox-agent/internal/auth/domain"
	"inbox-agent/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

const (
	testIssuer = "https://accounts.google.com"
	testEmail  = "push@test-project.iam.gserviceaccount.com"
)

func TestHMACVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewHMACVerifier("s3cret", testIssuer, testEmail)

	good, err := SignHMACPushToken("s3cret", testIssuer, testEmail, time.Minute)
	require.NoError(t, err)
	assert.NoError(t, v.Verify(ctx, good))

	shortIssuer, err := SignHMACPushToken("s3cret", "accounts.google.com", testEmail, time.Minute)
	require.NoError(t, err)
	assert.NoError(t, v.Verify(ctx, shortIssuer))

	cases := map[string]string{
		"empty": "",
	}
	cases["wrong secret"], _ = SignHMACPushToken("other", testIssuer, testEmail, time.Minute)
	cases["wrong email"], _ = SignHMACPushToken("s3cret", testIssuer, "evil@example.com", time.Minute)
	cases["wrong issuer"], _ = SignHMACPushToken("s3cret", "https://evil.example.com", testEmail, time.Minute)
	cases["expired"], _ = SignHMACPushToken("s3cret", testIssuer, testEmail, -time.Minute)

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			err := v.Verify(ctx, token)
			assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
			assert.True(t, IsAuthError(err))
		})
	}
}

func TestOIDCVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewOIDCVerifier("https://agent.example.com/webhook/gmail", testIssuer, testEmail)

	payload := &idtoken.Payload{
		Issuer: "accounts.google.com",
		Claims: map[string]interface{}{"email": testEmail, "email_verified": true},
	}
	var gotAudience string
	v.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		gotAudience = audience
		if token != "valid" {
			return nil, errors.New("bad signature")
		}
		return payload, nil
	}

	require.NoError(t, v.Verify(ctx, "valid"))
	assert.Equal(t, "https://agent.example.com/webhook/gmail", gotAudience)

	assert.ErrorIs(t, v.Verify(ctx, "forged"), authdomain.ErrUnauthorized)
	assert.ErrorIs(t, v.Verify(ctx, ""), authdomain.ErrUnauthorized)

	payload.Claims["email"] = "someone@else.com"
	assert.ErrorIs(t, v.Verify(ctx, "valid"), authdomain.ErrUnauthorized)

	payload.Claims["email"] = testEmail
	payload.Claims["email_verified"] = false
	assert.ErrorIs(t, v.Verify(ctx, "valid"), authdomain.ErrUnauthorized)

	payload.Claims["email_verified"] = true
	payload.Issuer = "https://issuer.example.com"
	assert.ErrorIs(t, v.Verify(ctx, "valid"), authdomain.ErrUnauthorized)
}

func TestVerifiers_RejectWithoutExpectations(t *testing.T) {
	ctx := context.Background()

	oidc := NewOIDCVerifier("", testIssuer, "")
	oidc.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{
			Issuer:   "accounts.google.com",
			Audience: "someone-else",
			Claims:   map[string]interface{}{"email": "attacker@gmail.com", "email_verified": true},
		}, nil
	}
	assert.ErrorIs(t, oidc.Verify(ctx, "google-signed"), authdomain.ErrUnauthorized)

	hmac := NewHMACVerifier("s3cret", testIssuer, "")
	token, err := SignHMACPushToken("s3cret", testIssuer, "attacker@example.com", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, hmac.Verify(ctx, token), authdomain.ErrUnauthorized)
}

func TestNewPushVerifier(t *testing.T) {
	cfg := config.NewForTesting()

	v, err := NewPushVerifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HMACVerifier{}, v)

	cfg.PushAuthMode = config.PushAuthOIDC
	_, err = NewPushVerifier(cfg)
	assert.Error(t, err, "oidc without audience")

	cfg.PushAudience = "https://agent.example.com/webhook/gmail"
	v, err = NewPushVerifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OIDCVerifier{}, v)

	cfg.PushExpectedEmail = ""
	_, err = NewPushVerifier(cfg)
	assert.Error(t, err, "oidc without expected email")
	cfg.PushExpectedEmail = testEmail

	cfg.PushAuthMode = config.PushAuthDisabled
	v, err = NewPushVerifier(cfg)
	require.NoError(t, err)
	assert.NoError(t, v.Verify(context.Background(), ""))

	cfg.PushAuthMode = "basic"
	_, err = NewPushVerifier(cfg)
	assert.Error(t, err)
}
