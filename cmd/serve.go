package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/api"
	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/store"
	"github.com/sells-group/rankgrid/pkg/places"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		provider, err := initProvider()
		if err != nil {
			return err
		}

		// Place resolution is optional: without an API key the endpoint
		// answers 503 and everything else still works.
		var placer places.Client
		if cfg.Places.Key != "" {
			placer, err = places.NewClient(cfg.Places.Key)
			if err != nil {
				return err
			}
		}

		var st store.Store
		if cfg.Store.Driver != "" {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		manager := api.NewManager(
			job.NewSubmitter(provider),
			job.NewPoller(provider, cfg.Poll.Concurrency),
			nil,
			coordinatorDefaults(),
			st,
		)
		defer manager.Shutdown()

		srv := api.NewServer(manager, provider, placer, api.ServerConfig{
			GridSize:      cfg.Grid.Size,
			SpacingMeters: cfg.Grid.SpacingMeters,
			Submit:        submitDefaults(),
			ResolveRadius: 25000,
		})

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", port))
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
