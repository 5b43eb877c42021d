package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/app"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/infrastructure/logging"
)

// runtime is shared by subcommands once the root pre-run has loaded it.
type runtime struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Question answering over your documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:      cfg.Logging.Level,
				Format:     cfg.Logging.Format,
				File:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
			})
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			rt.cfg, rt.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "config.yaml", "path to YAML config file; missing file uses defaults")

	root.AddCommand(
		newServeCmd(rt),
		newIngestCmd(rt),
		newAskCmd(rt),
	)
	return root
}

func (rt *runtime) build(ctx context.Context) (*app.App, error) {
	return app.Build(ctx, rt.cfg, rt.logger)
}

// requirePersistentStore rejects one-shot commands whose work would vanish
// with the process.
func (rt *runtime) requirePersistentStore(command string) error {
	if rt.cfg.VectorStore.Type == "memory" {
		return fmt.Errorf("%s needs a persistent vector store; vectorstore.type=memory only lives as long as one process (use sqlite, or run serve)", command)
	}
	return nil
}
