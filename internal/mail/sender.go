package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/helper"
	"github.com/tazhibayda/todo-service/internal/queue"
)

// Deduper remembers which messages were already handled. repo.Redis implements it.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Sender delivers user notifications. There is no SMTP transport yet, so a
// message is written to the log instead of a mailbox.
type Sender struct {
	log     *zap.Logger
	seen    Deduper
	seenTTL time.Duration
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

// WithDedupe skips deliveries whose message id was handled within ttl.
func (s *Sender) WithDedupe(seen Deduper, ttl time.Duration) *Sender {
	s.seen = seen
	s.seenTTL = ttl
	return s
}

func (s *Sender) SendWelcome(to, name string) error {
	if to == "" {
		return fmt.Errorf("welcome mail: empty recipient")
	}
	s.log.Info("mail sent",
		helper.EmailField(to),
		zap.String("subject", "Welcome to Todo"),
		zap.String("body", fmt.Sprintf("Hi %s, your account is ready.", name)),
	)
	return nil
}

// HandleDelivery is the consumer callback for the notify worker.
func (s *Sender) HandleDelivery(ctx context.Context, d queue.Delivery) error {
	switch d.Key {
	case queue.KeyUserRegistered:
		var ev queue.UserRegistered
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			// a body we cannot decode will never succeed; drop it
			s.log.Warn("bad user.registered payload", zap.String("request_id", d.RequestID), zap.Error(err))
			return nil
		}
		if ev.Email == "" {
			s.log.Warn("user.registered without email", zap.String("user_id", ev.UserID))
			return nil
		}
		return s.once(ctx, d, func() error { return s.SendWelcome(ev.Email, ev.Name) })
	default:
		s.log.Debug("ignored event", zap.String("key", d.Key))
		return nil
	}
}

func (s *Sender) once(ctx context.Context, d queue.Delivery, send func() error) error {
	if s.seen == nil || d.MessageID == "" {
		return send()
	}
	key := "notify:" + d.MessageID
	fresh, err := s.seen.Claim(ctx, key, s.seenTTL)
	if err != nil {
		return fmt.Errorf("dedupe claim: %w", err)
	}
	if !fresh {
		s.log.Info("duplicate delivery skipped", zap.String("message_id", d.MessageID))
		return nil
	}
	if err := send(); err != nil {
		_ = s.seen.Release(ctx, key)
		return err
	}
	return nil
}
