package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrKeysUnavailable means the provider's signing keys could not be loaded, so
// no assertion can be judged either way. It is a server fault, not a bad token.
var ErrKeysUnavailable = errors.New("identity provider keys unavailable")

type KeySetConfig struct {
	URL             string
	RefreshInterval time.Duration // background refresh of the whole set
	UnknownKIDEvery time.Duration // at most one refresh per window for a kid we have not seen
	UnknownKIDWait  time.Duration // how long a request waits for that refresh slot
	Log             *zap.Logger
}

// KeySet holds the provider's JWKS and hands out a jwt.Keyfunc over it.
type KeySet struct {
	kf keyfunc.Keyfunc
}

// NewKeySet starts the background refresh, which stops when ctx is done. A
// failed first download is not an error; the set stays empty until a refresh
// succeeds.
func NewKeySet(ctx context.Context, cfg KeySetConfig) (*KeySet, error) {
	lg := cfg.Log
	if lg == nil {
		lg = zap.NewNop()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.UnknownKIDEvery <= 0 {
		cfg.UnknownKIDEvery = time.Minute
	}
	if cfg.UnknownKIDWait <= 0 {
		cfg.UnknownKIDWait = 100 * time.Millisecond
	}

	kf, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{cfg.URL}, keyfunc.Override{
		HTTPTimeout:       5 * time.Second,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(cfg.UnknownKIDEvery), 1),
		RateLimitWaitMax:  cfg.UnknownKIDWait,
		RefreshErrorHandlerFunc: func(u string) func(context.Context, error) {
			return func(_ context.Context, err error) {
				lg.Warn("jwks refresh failed", zap.String("url", u), zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeysUnavailable, err)
	}
	return &KeySet{kf: kf}, nil
}

// Keyfunc resolves the token's kid. A miss against an empty set is reported as
// ErrKeysUnavailable; a miss against a loaded set is the token's problem.
func (k *KeySet) Keyfunc(t *jwt.Token) (interface{}, error) {
	key, err := k.kf.Keyfunc(t)
	if err == nil {
		return key, nil
	}
	all, rerr := k.kf.Storage().KeyReadAll(context.Background())
	if rerr != nil || len(all) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrKeysUnavailable, err)
	}
	return nil, err
}
