package session

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// CookieSigner signs and validates the session cookie value.
type CookieSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewCookieSigner builds a signer; a non-positive ttl defaults to one hour.
func NewCookieSigner(secret string, ttl time.Duration) *CookieSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CookieSigner{secret: []byte(secret), ttl: ttl}
}

type cookieClaims struct {
	jwt.RegisteredClaims
}

// Sign returns a signed cookie value for session id and its expiry.
func (s *CookieSigner) Sign(id string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return value, expiresAt, nil
}

// Parse validates value and returns the session id it carries.
func (s *CookieSigner) Parse(value string) (string, error) {
	parsed, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*cookieClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid session cookie")
	}
	return claims.Subject, nil
}
