package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/mail"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo"
)

func newNotifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume user.registered events and send welcome mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()
			if cfg.RabbitURL == "" {
				return errors.New("RABBIT_URL is required for notify")
			}

			cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, cfg.RabbitBindKey)
			if err != nil {
				return err
			}
			defer cons.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sender := mail.NewSender(lg)
			if cfg.RedisAddr != "" {
				rdb := repo.NewRedis(cfg.RedisAddr)
				defer func() { _ = rdb.Close() }()
				if err := rdb.Ping(ctx); err != nil {
					return err
				}
				sender.WithDedupe(rdb, cfg.DedupeTTL)
			}

			lg.Info("notify worker up",
				zap.String("exchange", cfg.RabbitExchange),
				zap.String("queue", cfg.RabbitQueue),
				zap.String("key", cfg.RabbitBindKey),
				zap.Int("workers", cfg.RabbitConcurrency),
				zap.Bool("dedupe", cfg.RedisAddr != ""),
			)
			return cons.Consume(ctx, cfg.RabbitConcurrency, sender.HandleDelivery)
		},
	}
}
