package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"railbook/internal/countdown"
	appLog "railbook/internal/log"
	"railbook/internal/web"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking page and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	bindFlag(cmd, "listen", "listen")
	return cmd
}

func runServe(parent context.Context) error {
	appLog.Info("railbook starting", "version", version)

	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if removed, err := a.cache.Activate(); err != nil {
		appLog.Error("offline cache cleanup failed", err)
	} else if len(removed) > 0 {
		appLog.Info("offline cache activated", "version", a.cache.Version(), "removed", len(removed))
	}

	srv, err := web.NewServer(cfg, a.ctrl)
	if err != nil {
		return err
	}

	a.ctrl.OnTick(logWindowOpen())
	if err := a.ctrl.StartCountdown(); err != nil {
		return fmt.Errorf("start countdown: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
	}
	appLog.Info("railbook exiting")
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM or when the returned cancel
// is called.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// logWindowOpen logs each countdown item once when its window opens.
func logWindowOpen() func(countdown.Snapshot) {
	var mu sync.Mutex
	open := make(map[string]bool)
	return func(snap countdown.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for _, it := range snap.Items {
			isOpen := it.State == countdown.StateWindowOpen
			if isOpen && !open[it.Key] {
				appLog.Info("booking window open", "key", it.Key, "travel_date", it.Travel.String())
			}
			open[it.Key] = isOpen
		}
	}
}
