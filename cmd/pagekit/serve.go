package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/bootstrap"
	"github.com/milodocs/pagekit/config"
	"github.com/milodocs/pagekit/metric"
	"github.com/milodocs/pagekit/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve enhanced pages and the runtime APIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger := bootstrap.NewLogger(cfg.Logging)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := bootstrap.OpenStore(ctx, cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("opening preference store: %w", err)
		}
		defer store.Close()

		index, err := bootstrap.OpenSearch(ctx, cfg.Search, logger)
		if err != nil {
			return fmt.Errorf("opening search index: %w", err)
		}
		if index != nil {
			defer index.Close()
		}

		var chat *askdocs.Client
		if cfg.Endpoints.ChatURL != "" || cfg.Endpoints.SummarizeURL != "" {
			chat = askdocs.NewClient(askdocs.ClientOptions{
				ChatURL:      cfg.Endpoints.ChatURL,
				SummarizeURL: cfg.Endpoints.SummarizeURL,
				Timeout:      cfg.Endpoints.Timeout,
				Logger:       logger,
			})
		}

		srv := server.New(server.Options{
			Config:  cfg,
			Logger:  logger,
			Metrics: metric.NewRegistry(),
			Store:   store,
			Index:   index,
			Chat:    chat,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
