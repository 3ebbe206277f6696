package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"example.com/notes-api/internal/config"
	"example.com/notes-api/internal/db"
	"example.com/notes-api/internal/logger"
	"example.com/notes-api/internal/notes"
	"example.com/notes-api/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Open the database, create the schema when missing and serve the notes API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if addrFlag != "" {
			cfg.HTTPAddr = addrFlag
		}
		if databaseURLFlag != "" {
			cfg.DatabaseURL = databaseURLFlag
		}

		log := logger.New(cfg.Env, cfg.LogLevel, os.Stdout)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("server stopped with error")
			return err
		}
		return nil
	},
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info().Str("dialect", string(conn.Dialect)).Msg("database ready")

	repo, err := notes.NewRepository(ctx, conn.SQL, conn.Dialect)
	if err != nil {
		return err
	}
	defer repo.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Options{
			Version:     version,
			Env:         cfg.Env,
			CORSOrigins: cfg.CORSOrigins,
			Logger:      log,
			DB:          conn,
			Store:       repo,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("notes api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
