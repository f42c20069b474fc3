package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// closerHTTPServer names the closer that Stop runs first and on its own.
const closerHTTPServer = "HTTP Server"

// Serve accepts requests until ctx is done or the listener fails. A done ctx
// is a shutdown request and returns nil; call Stop afterwards either way.
func (a *App) Serve(ctx context.Context) error {
	failed := make(chan error, 1)
	go func() {
		slog.Info("http server listening",
			"address", a.httpServer.Addr,
			"read_timeout", a.httpServer.ReadTimeout,
			"write_timeout", a.httpServer.WriteTimeout,
		)
		failed <- a.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown requested")
		return nil
	case err := <-failed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http on %q: %w", a.httpServer.Addr, err)
	}
}

// ShutdownTimeout bounds how long Stop may wait for in-flight runs.
func (a *App) ShutdownTimeout() time.Duration {
	if a.config == nil {
		return defaultShutdownTimeout
	}
	return a.config.GetDuration("server.timeout.shutdown")
}

// Stop cancels background runs, drains the HTTP server, waits for the run
// goroutines and then releases the remaining resources in name order.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	if closer, ok := a.closerFn[closerHTTPServer]; ok {
		if err := closer(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closerHTTPServer, "error", err)
		}
	}

	if a.goroutine != nil {
		slog.InfoContext(ctx, "waiting for extraction runs to finish")
		if err := a.goroutine.Wait(); err != nil {
			slog.ErrorContext(ctx, "extraction run ended with error", "error", err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(a.closerFn)) {
		if name == closerHTTPServer {
			continue
		}
		if err := a.closerFn[name](ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", name, "error", err)
		}
	}
	slog.InfoContext(ctx, "application stopped")
}
