package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tazhibayda/todo-service/internal/repo"
)

func newIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the Mongo indexes and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			if err := store.EnsureIndexes(ctx); err != nil {
				return err
			}
			lg.Info("indexes ensured")
			return nil
		},
	}
}
