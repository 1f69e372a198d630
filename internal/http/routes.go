package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tazhibayda/todo-service/docs"
)

type RouterConfig struct {
	CORSOrigins  []string
	Gatherer     prometheus.Gatherer // serves /metrics when set
	TraceService string              // empty disables request spans
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	if rc.TraceService != "" {
		r.Use(Tracing(rc.TraceService))
	}
	r.Use(AccessLog(h.Log))
	if h.Metrics != nil {
		r.Use(Instrument(h.Metrics))
	}
	r.Use(CORS(rc.CORSOrigins))

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if rc.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rc.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/google", h.GoogleLogin)
	}

	todos := r.Group("/api/todos", AuthJWT(h.Tokens))
	{
		todos.GET("", h.ListTodos)
		todos.POST("", h.CreateTodo)
		todos.DELETE("/:id", h.DeleteTodo)
	}
	return r
}
