package oauth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhibayda/todo-service/internal/oauth"
)

const clientID = "client-123.apps.googleusercontent.com"

type googleKeys struct {
	kid    string
	priv   *rsa.PrivateKey
	srv    *httptest.Server
	hits   atomic.Int32
	status atomic.Int32 // non-zero makes the endpoint fail with that code
}

func newGoogleKeys(t *testing.T) *googleKeys {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	g := &googleKeys{kid: "kidA", priv: k}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		if code := g.status.Load(); code != 0 {
			w.WriteHeader(int(code))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA", "kid": g.kid, "use": "sig", "alg": "RS256",
			"n": base64.RawURLEncoding.EncodeToString(k.PublicKey.N.Bytes()),
			"e": base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *googleKeys) keySet(t *testing.T) *oauth.KeySet {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ks, err := oauth.NewKeySet(ctx, oauth.KeySetConfig{
		URL:             g.srv.URL,
		RefreshInterval: time.Hour,
		UnknownKIDEvery: time.Minute,
		UnknownKIDWait:  20 * time.Millisecond,
	})
	require.NoError(t, err)
	return ks
}

func (g *googleKeys) verifier(t *testing.T) *oauth.GoogleVerifier {
	t.Helper()
	return oauth.NewGoogleVerifier(clientID, g.keySet(t))
}

func (g *googleKeys) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = g.kid
	s, err := tok.SignedString(g.priv)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            clientID,
		"sub":            "1098",
		"email":          "ann@x.com",
		"email_verified": true,
		"name":           "Ann Lee",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func TestGoogleVerifier_Accepts(t *testing.T) {
	keys := newGoogleKeys(t)
	v := keys.verifier(t)

	id, err := v.Verify(context.Background(), keys.sign(t, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", id.Email)
	assert.Equal(t, "Ann Lee", id.Name)
	assert.Equal(t, "1098", id.Sub)
}

func TestGoogleVerifier_NameFallsBackToLocalPart(t *testing.T) {
	keys := newGoogleKeys(t)
	v := keys.verifier(t)

	c := validClaims()
	delete(c, "name")
	id, err := v.Verify(context.Background(), keys.sign(t, c))
	require.NoError(t, err)
	assert.Equal(t, "ann", id.Name)
}

func TestGoogleVerifier_Rejects(t *testing.T) {
	keys := newGoogleKeys(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	with := func(k string, v any) jwt.MapClaims {
		c := validClaims()
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	foreign.Header["kid"] = keys.kid
	foreignSigned, err := foreign.SignedString(other)
	require.NoError(t, err)

	cases := map[string]string{
		"wrong audience":    keys.sign(t, with("aud", "someone-else.apps.googleusercontent.com")),
		"expired":           keys.sign(t, with("exp", time.Now().Add(-time.Minute).Unix())),
		"missing exp":       keys.sign(t, with("exp", nil)),
		"wrong issuer":      keys.sign(t, with("iss", "https://evil.example.com")),
		"missing email":     keys.sign(t, with("email", nil)),
		"unverified email":  keys.sign(t, with("email_verified", false)),
		"foreign signature": foreignSigned,
		"not a jwt":         "abc.def",
	}
	v := keys.verifier(t)
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), tok)
			assert.ErrorIs(t, err, oauth.ErrInvalidAssertion)
			assert.Nil(t, id)
		})
	}
}

func TestGoogleVerifier_NoClientIDRejectsEverything(t *testing.T) {
	keys := newGoogleKeys(t)
	v := oauth.NewGoogleVerifier("", keys.keySet(t))

	_, err := v.Verify(context.Background(), keys.sign(t, setClaim(validClaims(), "aud", "")))
	assert.ErrorIs(t, err, oauth.ErrInvalidAssertion)
}

func setClaim(c jwt.MapClaims, k string, v any) jwt.MapClaims {
	c[k] = v
	return c
}

func TestGoogleVerifier_KeysDownIsNotABadToken(t *testing.T) {
	keys := newGoogleKeys(t)
	keys.status.Store(http.StatusServiceUnavailable)
	v := keys.verifier(t)

	id, err := v.Verify(context.Background(), keys.sign(t, validClaims()))
	require.Error(t, err)
	assert.Nil(t, id)
	assert.ErrorIs(t, err, oauth.ErrKeysUnavailable)
	assert.False(t, errors.Is(err, oauth.ErrInvalidAssertion))
}

func TestGoogleVerifier_KeysCachedWhileProviderDown(t *testing.T) {
	keys := newGoogleKeys(t)
	v := keys.verifier(t)
	keys.status.Store(http.StatusServiceUnavailable)

	_, err := v.Verify(context.Background(), keys.sign(t, validClaims()))
	assert.NoError(t, err)
}

func TestGoogleVerifier_UnknownKidRefreshIsRateLimited(t *testing.T) {
	keys := newGoogleKeys(t)
	v := keys.verifier(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	tok.Header["kid"] = "made-up-kid"
	signed, err := tok.SignedString(keys.priv)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Verify(context.Background(), signed)
			assert.ErrorIs(t, err, oauth.ErrInvalidAssertion)
		}()
	}
	wg.Wait()

	// one download at start, at most one more for the unknown kid
	assert.LessOrEqual(t, keys.hits.Load(), int32(2))
}
