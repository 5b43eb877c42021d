package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpserver "github.com/0xcro3dile/docqa-go/internal/infrastructure/http"
)

func newServeCmd(rt *runtime) *cobra.Command {
	var watchDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, optionally syncing a watched directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := rt.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if watchDir == "" {
				watchDir = rt.cfg.Ingest.WatchDir
			}

			g, ctx := errgroup.WithContext(ctx)
			if watchDir != "" {
				syncer, err := a.Sync()
				if err != nil {
					return err
				}
				g.Go(func() error { return syncer.Run(ctx, watchDir) })
				rt.logger.Info("watching documents", zap.String("dir", watchDir))
			}

			srv := httpserver.NewServer(a.Query, a.Ingest, httpserver.Options{
				Addr:      rt.cfg.Server.Addr,
				UploadDir: rt.cfg.Server.UploadDir,
				Metrics:   a.Metrics,
				Logger:    rt.logger.Named("http"),
			})
			g.Go(func() error { return srv.Start(ctx) })

			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "directory to ingest and keep in sync (overrides ingest.watch_dir)")
	return cmd
}
