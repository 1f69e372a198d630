package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/config"
	api "github.com/tazhibayda/todo-service/internal/http"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo"
	"github.com/tazhibayda/todo-service/internal/security"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()
			return serve(cmd.Context(), cfg, lg)
		},
	}
}

func serve(parent context.Context, cfg config.Config, lg *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDefaultSecret() {
		lg.Warn("JWT is unset, signing tokens with the development secret")
	}
	if cfg.GoogleClientID == "" {
		lg.Warn("GOOGLE_CLIENT_ID is unset, google login will reject every token")
	}

	traceService := ""
	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.DDService))
		defer tracer.Stop()
		traceService = cfg.DDService
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := repo.NewStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	keys, err := oauth.NewKeySet(ctx, oauth.KeySetConfig{
		URL:             cfg.GoogleCertsURL,
		RefreshInterval: cfg.JWKSCacheTTL,
		UnknownKIDEvery: cfg.JWKSUnknownKID,
		Log:             lg,
	})
	if err != nil {
		return err
	}
	google := oauth.NewGoogleVerifier(cfg.GoogleClientID, keys)

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		p, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			lg.Warn("rabbit unavailable, events disabled", zap.Error(err))
		} else {
			pub = p
		}
	}
	defer func() { _ = pub.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens := security.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	h := api.NewHandler(store, tokens, google, pub, metrics.New(reg), lg)

	if cfg.LogProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(h, api.RouterConfig{
			CORSOrigins:  cfg.CORSOrigins,
			Gatherer:     reg,
			TraceService: traceService,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	lg.Info("todo-service listening", zap.String("addr", srv.Addr), zap.String("db", cfg.MongoDB))

	select {
	case <-ctx.Done():
		lg.Info("shutting down")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// events from the last requests go out before the publisher closes
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if derr := h.Drain(drainCtx); derr != nil {
		lg.Warn("pending events dropped at shutdown", zap.Error(derr))
	}
	return err
}
