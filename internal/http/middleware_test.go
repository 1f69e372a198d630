package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CORS(t *testing.T) {
	env := newTestEnv(t)

	t.Run("allowed origin", func(t *testing.T) {
		w := env.do("GET", "/", "", map[string]string{"Origin": "http://localhost:3000"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := env.do("OPTIONS", "/api/todos", "", map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": "POST",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("foreign origin", func(t *testing.T) {
		w := env.do("GET", "/", "", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.NotContains(t, w.Body.String(), "Todo API is running")
	})

	t.Run("foreign preflight", func(t *testing.T) {
		w := env.do("OPTIONS", "/api/todos", "", map[string]string{
			"Origin":                        "https://evil.example",
			"Access-Control-Request-Method": "DELETE",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no origin", func(t *testing.T) {
		w := env.do("GET", "/", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func Test_Metrics_CountRequestsByRoute(t *testing.T) {
	env := newTestEnv(t)
	env.do("GET", "/api/todos", "", nil)
	env.do("POST", "/api/auth/login", `{"email":"a@x.com","password":"p"}`, nil)

	w := env.do("GET", "/metrics", "", nil)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/api/todos",status="401"} 1`)
	assert.Contains(t, body, `auth_attempts_total{method="local",outcome="rejected"} 1`)
}
