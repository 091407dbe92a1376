package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the carry-over session over HTTP",
	Long: `Serve one carry-over session as a JSON API.

Endpoints:
  GET  /health
  GET  /session                 sprints, selection, items and log
  POST /session/reload
  PUT  /session/source          {"id": "<sprint id>"}
  PUT  /session/destination     {"id": "<sprint id>"}
  PUT  /session/items/{id}      {"included": true|false}
  POST /session/select-all
  POST /session/select-none
  POST /session/carryover
  GET  /runs
  GET  /runs/{id}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		session := a.newSession()
		a.runner.Drive(ctx, session, session.Load())
		if err := loadError(session); err != nil {
			logger.Warn("initial load failed", zap.Error(err))
		}

		var history api.History
		if a.journal != nil {
			history = a.journal
		}
		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      api.NewRouter(api.NewServer(session, a.runner, history, logger), logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", zap.String("addr", serveAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
}
