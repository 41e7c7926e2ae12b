package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/emerald-haven/api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned by NewProvider when JWT_SECRET is unset.
var ErrNoSecret = errors.New("JWT_SECRET is missing")

// ErrInvalidToken covers bad signatures, expiry and malformed input alike.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the session token payload.
type Claims struct {
	AccountID string `json:"userId"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	expiry := cfg.JWTExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &Provider{secret: []byte(cfg.JWTSecret), expiry: expiry, now: time.Now}, nil
}

// Expiry is the lifetime of every issued token.
func (p *Provider) Expiry() time.Duration { return p.expiry }

// Sign issues a token for the account, expiring Expiry() from now.
func (p *Provider) Sign(accountID, email string) (string, error) {
	now := p.now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. It does not check that the account still exists.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
