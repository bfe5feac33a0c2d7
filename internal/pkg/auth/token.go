package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims are the access token claims the app reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenParser reads backend access tokens. With a shared secret or a JWKS
// endpoint it verifies signatures; without either it only decodes.
type TokenParser struct {
	secret []byte
	jwks   keyfunc.Keyfunc
}

// NewTokenParser prefers the JWKS endpoint when both are given.
func NewTokenParser(ctx context.Context, secret, jwksURL string) (*TokenParser, error) {
	p := &TokenParser{}
	if jwksURL = strings.TrimSpace(jwksURL); jwksURL != "" {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
		}
		p.jwks = jwks
		return p, nil
	}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p, nil
}

// Verifies reports whether Parse checks signatures.
func (p *TokenParser) Verifies() bool {
	return p != nil && (p.jwks != nil || len(p.secret) > 0)
}

// Parse decodes the token. Time-based claims are not checked here, the
// accessor owns expiry and refresh.
func (p *TokenParser) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	var err error
	switch {
	case p == nil:
		_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	case p.jwks != nil:
		_, err = jwt.ParseWithClaims(raw, claims, p.jwks.KeyfuncCtx(ctx), jwt.WithoutClaimsValidation())
	case len(p.secret) > 0:
		_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return p.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	default:
		_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Expiry returns the exp claim, or the zero time.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
