package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playlistr/internal/server"
	"github.com/desertthunder/playlistr/internal/services"
	"github.com/desertthunder/playlistr/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// Serve starts the web server and blocks until SIGINT/SIGTERM or ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var provider services.Provider
	if r.config.Credentials.Spotify.Configured() {
		spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.httpClient, r.logger)
		if err != nil {
			return err
		}
		provider = spotify
	} else {
		r.logger.Warn("spotify credentials missing; OAuth routes will answer 503",
			"hint", "set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}

	srv, err := server.New(server.Options{
		Config:   r.config,
		DB:       db,
		Provider: provider,
		Logger:   shared.WithLogger(r.logger, "component", "http"),
	})
	if err != nil {
		return err
	}

	r.logger.Debug("routes registered", "routes", srv.Routes())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.Bool("open") {
		if err := r.openBrowser(r.config.Server.LocalBaseURL); err != nil {
			r.logger.Warn("failed to open browser", "url", r.config.Server.LocalBaseURL, "error", err)
		}
	}

	return r.serve(ctx, ln, srv)
}

// serve runs srv on ln with session cleanup until ctx is done, then shuts down gracefully.
func (r *Runner) serve(ctx context.Context, ln net.Listener, srv *server.Server) error {
	httpServer := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go srv.CleanupSessions(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
