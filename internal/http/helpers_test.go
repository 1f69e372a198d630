package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	api "github.com/tazhibayda/todo-service/internal/http"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/repo"
	"github.com/tazhibayda/todo-service/internal/security"
)

const testSecret = "test-secret"

// memStore mimics repo.Store, including the unique (provider, email) index.
type memStore struct {
	mu      sync.Mutex
	users   []domain.User
	todos   []domain.Todo
	tick    time.Time
	pingErr error
	failAll error
}

func newMemStore() *memStore {
	return &memStore{tick: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *memStore) next() time.Time {
	s.tick = s.tick.Add(time.Second)
	return s.tick
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) FindUserByEmail(_ context.Context, provider, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	for _, u := range s.users {
		if u.Provider == provider && u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	for _, e := range s.users {
		if e.Provider == u.Provider && e.Email == u.Email {
			return repo.ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = s.next()
	u.UpdatedAt = u.CreatedAt
	s.users = append(s.users, *u)
	return nil
}

func (s *memStore) ListTodosByOwner(_ context.Context, owner primitive.ObjectID) ([]domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	out := make([]domain.Todo, 0)
	for _, t := range s.todos {
		if t.UserID == owner {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) CreateTodo(_ context.Context, t *domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	t.ID = primitive.NewObjectID()
	t.CreatedAt = s.next()
	t.UpdatedAt = t.CreatedAt
	s.todos = append(s.todos, *t)
	return nil
}

func (s *memStore) DeleteTodoByOwner(_ context.Context, id, owner primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	for i, t := range s.todos {
		if t.ID == id && t.UserID == owner {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// fakeGoogle accepts only the tokens it was told about.
type fakeGoogle struct {
	ids map[string]*oauth.Identity
	err error
}

func (g *fakeGoogle) Verify(_ context.Context, idToken string) (*oauth.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if id, ok := g.ids[idToken]; ok {
		return id, nil
	}
	return nil, oauth.ErrInvalidAssertion
}

type published struct {
	Key   string
	Event any
	ReqID string
}

type recordingPub struct {
	mu   sync.Mutex
	got  []published
	gate chan struct{} // when set, Publish blocks until it is closed
}

func (p *recordingPub) Publish(_ context.Context, key string, event any, reqID string) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{Key: key, Event: event, ReqID: reqID})
	return nil
}

func (p *recordingPub) Close() error { return nil }

func (p *recordingPub) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.got))
	for _, e := range p.got {
		out = append(out, e.Key)
	}
	return out
}

type testEnv struct {
	T       *testing.T
	Store   *memStore
	Google  *fakeGoogle
	Pub     *recordingPub
	Tokens  *security.Tokens
	Handler *api.Handler
	Router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	google := &fakeGoogle{ids: map[string]*oauth.Identity{}}
	pub := &recordingPub{}
	tokens := security.NewTokens(testSecret, 7*24*time.Hour)
	reg := prometheus.NewRegistry()

	h := api.NewHandler(store, tokens, google, pub, metrics.New(reg), zap.NewNop())
	r := api.NewRouter(h, api.RouterConfig{
		CORSOrigins: []string{"http://localhost:3000"},
		Gatherer:    reg,
	})
	return &testEnv{T: t, Store: store, Google: google, Pub: pub, Tokens: tokens, Handler: h, Router: r}
}

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func (e *testEnv) register(name, email, password string) authBody {
	e.T.Helper()
	w := e.do("POST", "/api/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(e.T, 201, w.Code, w.Body.String())
	var out authBody
	require.NoError(e.T, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}
