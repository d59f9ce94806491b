package usecase

import (
	"errors"
	"time"

	authdomain "inbox-agent/internal/auth/domain"
	authdto "inbox-agent/internal/auth/dto"
	"inbox-agent/internal/auth/repository"
	"inbox-agent/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	config *config.Config
	now    func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{
		config: cfg,
		now:    time.Now,
	}
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	if u.config.AdminPasswordHash == "" || u.config.JWTSecret == "" {
		return nil, authdomain.NewAuthError("admin login is disabled", nil)
	}
	if !repository.CheckPasswordHash(req.Password, u.config.AdminPasswordHash) {
		return nil, authdomain.NewAuthError("invalid password", nil)
	}
	return u.generateAccessToken()
}

func (u *authUsecase) generateAccessToken() (*authdto.TokenResponse, error) {
	now := u.now()
	expiresAt := now.Add(u.config.JWTAccessExpiry)

	claims := jwt.RegisteredClaims{
		Subject:   authdomain.AdminSubject,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.config.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &authdto.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.Admin, error) {
	// an empty key would accept tokens anyone can sign
	if u.config.JWTSecret == "" {
		return nil, authdomain.NewAuthError("admin API is disabled", nil)
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))
	if err != nil || !token.Valid {
		return nil, authdomain.NewAuthError("invalid token", err)
	}

	if claims.Subject != authdomain.AdminSubject {
		return nil, authdomain.NewAuthError("invalid token claims", errors.New("unexpected subject"))
	}

	admin := &authdomain.Admin{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		admin.ExpiresAt = claims.ExpiresAt.Time
	}
	return admin, nil
}
