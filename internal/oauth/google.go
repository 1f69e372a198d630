package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAssertion covers every reason a Google ID token is refused.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// KeySource resolves the signing key for a token. *KeySet is the production one.
type KeySource interface {
	Keyfunc(t *jwt.Token) (interface{}, error)
}

// Identity is what a verified assertion tells us about the user.
type Identity struct {
	Sub   string
	Email string
	Name  string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// GoogleVerifier checks ID tokens minted by Google Sign-In for our client id.
type GoogleVerifier struct {
	clientID string
	keys     KeySource
	now      func() time.Time
}

func NewGoogleVerifier(clientID string, keys KeySource) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, keys: keys, now: time.Now}
}

// WithClock is for tests that sign tokens with fixed timestamps.
func (g *GoogleVerifier) WithClock(now func() time.Time) *GoogleVerifier {
	g.now = now
	return g
}

func (g *GoogleVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	if g.clientID == "" {
		return nil, fmt.Errorf("%w: google client id not configured", ErrInvalidAssertion)
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, g.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if errors.Is(err, ErrKeysUnavailable) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("%w: bad iss %q", ErrInvalidAssertion, claims.Issuer)
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrInvalidAssertion)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidAssertion)
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = localPart(email)
	}
	return &Identity{Sub: claims.Subject, Email: email, Name: name}, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
