package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/helper"
	applog "github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo"
	"github.com/tazhibayda/todo-service/internal/security"
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, provider, email string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

type TodoStore interface {
	ListTodosByOwner(ctx context.Context, owner primitive.ObjectID) ([]domain.Todo, error)
	CreateTodo(ctx context.Context, t *domain.Todo) error
	DeleteTodoByOwner(ctx context.Context, id, owner primitive.ObjectID) error
}

// Store is everything the handlers need from persistence; *repo.Store satisfies it.
type Store interface {
	UserStore
	TodoStore
	Ping(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*oauth.Identity, error)
}

type Handler struct {
	Users   UserStore
	Todos   TodoStore
	Checks  map[string]Pinger
	Tokens  *security.Tokens
	Google  IdentityVerifier
	Events  queue.Publisher
	Metrics *metrics.Metrics
	Log     *zap.Logger

	pending sync.WaitGroup // publish goroutines not yet finished
}

func NewHandler(store Store, tokens *security.Tokens, google IdentityVerifier, pub queue.Publisher, m *metrics.Metrics, log *zap.Logger) *Handler {
	if pub == nil {
		pub = queue.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Users:   store,
		Todos:   store,
		Checks:  map[string]Pinger{"mongo": store},
		Tokens:  tokens,
		Google:  google,
		Events:  pub,
		Metrics: m,
		Log:     log,
	}
}

type authResp struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register a local account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "name, email, password"
// @Success 201 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil || blank(in.Name) || blank(in.Email) || in.Password == "" {
		h.fail(c, http.StatusBadRequest, "Name, email and password are required", err)
		return
	}
	ctx := c.Request.Context()
	email := strings.TrimSpace(in.Email)

	existing, err := h.Users.FindUserByEmail(ctx, domain.ProviderLocal, email)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to register user", err, helper.EmailField(email))
		return
	}
	if existing != nil {
		h.authOutcome("register", "conflict")
		h.fail(c, http.StatusBadRequest, "Email already in use", nil, helper.EmailField(email))
		return
	}

	var hash string
	WithSpan(ctx, "bcrypt.hash", func(context.Context) {
		hash, err = security.HashPassword(in.Password)
	})
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to register user", err)
		return
	}

	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Provider:     domain.ProviderLocal,
	}
	if err := h.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			h.authOutcome("register", "conflict")
			h.fail(c, http.StatusBadRequest, "Email already in use", nil, helper.EmailField(email))
			return
		}
		h.fail(c, http.StatusInternalServerError, "Failed to register user", err, helper.EmailField(email))
		return
	}

	tok, err := h.Tokens.Issue(u.ID.Hex())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to register user", err)
		return
	}

	h.publish(c, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID.Hex(), Email: u.Email, Name: u.Name, Provider: u.Provider,
	})
	h.authOutcome("register", "ok")
	c.JSON(http.StatusCreated, authResp{Token: tok, User: u.Public()})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "email, password"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil || blank(in.Email) || in.Password == "" {
		h.fail(c, http.StatusBadRequest, "Email and password are required", err)
		return
	}
	ctx := c.Request.Context()
	email := strings.TrimSpace(in.Email)

	u, err := h.Users.FindUserByEmail(ctx, domain.ProviderLocal, email)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to login", err, helper.EmailField(email))
		return
	}
	// unknown email and wrong password must look the same from outside
	if u == nil {
		security.DummyCheck(in.Password)
		h.authOutcome("local", "rejected")
		h.fail(c, http.StatusBadRequest, "Invalid email or password", nil, helper.EmailField(email))
		return
	}
	if !security.CheckPassword(u.PasswordHash, in.Password) {
		h.authOutcome("local", "rejected")
		h.fail(c, http.StatusBadRequest, "Invalid email or password", nil, helper.EmailField(email))
		return
	}

	tok, err := h.Tokens.Issue(u.ID.Hex())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to login", err)
		return
	}

	h.publish(c, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Provider: u.Provider})
	h.authOutcome("local", "ok")
	c.JSON(http.StatusOK, authResp{Token: tok, User: u.Public()})
}

type googleReq struct {
	IDToken string `json:"idToken"`
}

// GoogleLogin godoc
// @Summary Login with a Google ID token
// @Description Creates the google account on first use.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleReq true "idToken from Google Sign-In"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/auth/google [post]
func (h *Handler) GoogleLogin(c *gin.Context) {
	var in googleReq
	if err := c.ShouldBindJSON(&in); err != nil || blank(in.IDToken) {
		h.fail(c, http.StatusBadRequest, "ID token is required", err)
		return
	}
	ctx := c.Request.Context()

	id, err := h.Google.Verify(ctx, strings.TrimSpace(in.IDToken))
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidAssertion) {
			h.authOutcome("google", "rejected")
			h.fail(c, http.StatusUnauthorized, "Invalid Google token", err)
			return
		}
		h.fail(c, http.StatusInternalServerError, "Failed to login with Google", err)
		return
	}

	u, created, err := h.findOrCreateGoogleUser(ctx, id)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to login with Google", err, helper.EmailField(id.Email))
		return
	}

	tok, err := h.Tokens.Issue(u.ID.Hex())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Failed to login with Google", err)
		return
	}

	if created {
		h.publish(c, queue.KeyUserRegistered, queue.UserRegistered{
			UserID: u.ID.Hex(), Email: u.Email, Name: u.Name, Provider: u.Provider,
		})
	}
	h.publish(c, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Provider: u.Provider})
	h.authOutcome("google", "ok")
	c.JSON(http.StatusOK, authResp{Token: tok, User: u.Public()})
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, id *oauth.Identity) (*domain.User, bool, error) {
	u, err := h.Users.FindUserByEmail(ctx, domain.ProviderGoogle, id.Email)
	if err != nil || u != nil {
		return u, false, err
	}

	u = &domain.User{Name: id.Name, Email: id.Email, Provider: domain.ProviderGoogle}
	err = h.Users.CreateUser(ctx, u)
	if errors.Is(err, repo.ErrEmailTaken) {
		// lost a race with a concurrent first login; use the winner's record
		u, err = h.Users.FindUserByEmail(ctx, domain.ProviderGoogle, id.Email)
		if err == nil && u == nil {
			err = repo.ErrNotFound
		}
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// Root godoc
// @Summary Liveness banner
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Todo API is running"})
}

func (h *Handler) Healthz(c *gin.Context) {
	for name, p := range h.Checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			h.Log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": name + " unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail logs the cause with request context and writes {"error": msg}. Nothing
// from err reaches the client.
func (h *Handler) fail(c *gin.Context, status int, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.Int("status", status),
		zap.String("route", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l := applog.WithDD(c.Request.Context(), h.Log)
	if status >= http.StatusInternalServerError {
		l.Error(msg, fields...)
	} else {
		l.Warn(msg, fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// publish sends the event in the background; the response never waits on the broker.
func (h *Handler) publish(c *gin.Context, key string, ev any) {
	ctx := context.WithoutCancel(c.Request.Context())
	reqID := c.GetString(requestIDKey)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		if err := h.Events.Publish(ctx, key, ev, reqID); err != nil {
			h.Log.Warn("event publish failed", zap.String("key", key), zap.String("request_id", reqID), zap.Error(err))
		}
	}()
}

// Drain waits for in-flight event publishes, giving up when ctx is done.
func (h *Handler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) authOutcome(method, outcome string) {
	if h.Metrics != nil {
		h.Metrics.Auth(method, outcome)
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
