package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens. Validity depends only on
// the signature and exp; nothing is stored server side.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokensOption func(*Tokens)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) TokensOption {
	return func(t *Tokens) { t.now = now }
}

func NewTokens(secret string, ttl time.Duration, opts ...TokensOption) *Tokens {
	t := &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tokens) Issue(uid string) (string, error) {
	now := t.now()
	c := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Subject:   uid,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// Verify returns the uid embedded in token. Malformed, expired and badly
// signed tokens all come back as ErrInvalidToken.
func (t *Tokens) Verify(token string) (string, error) {
	c := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.UID == "" {
		return "", ErrInvalidToken
	}
	return c.UID, nil
}
