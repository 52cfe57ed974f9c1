package auth

import (
	"errors"
	"fmt"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrSecretRequired  = errors.New("token secret is required")
	ErrInvalidPassword = errors.New("invalid password")
)

// Issuer is the iss claim of admin tokens.
const Issuer = "sfadvisor"

// Claims are the JWT claims of an admin token.
type Claims struct {
	Role string `json:"role"`
	gjwt.RegisteredClaims
}

// IssueToken signs an HS256 admin token for subject valid for ttl from now.
func IssueToken(secret []byte, subject string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, ErrSecretRequired
	}
	expires := now.Add(ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(expires),
		},
	}
	signed, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies an admin token and returns the request context it
// grants. Only HS256 tokens from this issuer are accepted.
func ParseToken(secret []byte, token string, now time.Time) (Context, error) {
	if len(secret) == 0 {
		return Context{}, ErrSecretRequired
	}

	var claims Claims
	_, err := gjwt.ParseWithClaims(token, &claims,
		func(*gjwt.Token) (any, error) { return secret, nil },
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithIssuer(Issuer),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return Context{
		Subject:       claims.Subject,
		Role:          claims.Role,
		Authenticated: true,
	}, nil
}
