package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/etaflow/internal/config"
	"github.com/okian/etaflow/pkg/logger"
)

// cli carries what every subcommand needs once the root pre-run finished.
type cli struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "etaflow",
		Short:         "Delivery-time estimation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	root.AddCommand(newServeCmd(c), newEstimateCmd(c), newBatchCmd(c))
	return root
}

// init loads .env, configuration and logging, in that order.
func (c *cli) init(cmd *cobra.Command) error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = logger.Get()
	return nil
}
