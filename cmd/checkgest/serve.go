package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/api"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	log := zap.L()
	conv, stats := newConverter(log)

	var results pipeline.ResultStore
	var reader api.ConversionReader
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		results, reader = st, st
		log.Info("result store ready", zap.String("path", cfg.Store.Path))
	}

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Workers:  cfg.Workers.Count,
		MaxQueue: cfg.Workers.MaxQueue,
		JobTTL:   cfg.Workers.JobTTL,
	}, conv, results, log)
	orch.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewServer(orch, conv, reader, stats, log, *cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
		orch.Stop()
	}()

	log.Info("starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	// Workers must drain before the store closes.
	<-stopped
	return nil
}
