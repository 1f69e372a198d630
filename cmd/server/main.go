package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/config"
	applog "github.com/tazhibayda/todo-service/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "todo-service",
		Short:         "Multi-tenant todo API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newIndexesCommand())
	cmd.AddCommand(newNotifyCommand())
	return cmd
}

// bootstrap loads config from the environment and installs the global logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	lg, err := applog.Init(cfg.LogProduction)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lg, nil
}
