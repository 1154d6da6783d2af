// HTTP server command.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/salesdb/internal/server"
	"github.com/maruel/salesdb/internal/server/ipgeo"
	"github.com/maruel/salesdb/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the HTML pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("http", "", "address to listen on, e.g. localhost:8000 or 0.0.0.0:8000 (default localhost:8000)")
	f.String("api-secret", "", "secret signing the tokens required by mutating requests (default: no authentication)")
	f.String("geo-db", "", "MaxMind MMDB file for IP geolocation in access logs (optional)")
	bindFlags(a.v, f, map[string]string{
		"http":       cfgKeyHTTP,
		"api-secret": cfgKeyAPISecret,
		"geo-db":     cfgKeyGeoDB,
	})
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	svc, err := a.openService(ctx)
	if err != nil {
		return err
	}

	// Normalize addr: ":8000" becomes "localhost:8000"
	addr := a.cfg.HTTP
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	var geoChecker *ipgeo.Checker
	if a.cfg.GeoDB != "" {
		geoChecker, err = ipgeo.Open(a.cfg.GeoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		defer func() { _ = geoChecker.Close() }()
		slog.InfoContext(ctx, "IP geolocation enabled", "db", a.cfg.GeoDB)
	}

	limiters := ratelimit.NewConfig(a.cfg.ReadRatePerMin, a.cfg.WriteRatePerMin)
	defer limiters.Close()

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}
	if err := watchDataFile(ctx, svc.Path()); err != nil {
		return fmt.Errorf("failed to watch data file: %w", err)
	}

	version, _, _, _ := getBuildInfo()
	cfg := &server.Config{
		Version:             version,
		APISecret:           []byte(a.cfg.APISecret),
		MaxRequestBodyBytes: a.cfg.MaxRequestBodyBytes,
		Limiters:            limiters,
		IPGeo:               geoChecker,
	}
	if a.cfg.APISecret == "" {
		slog.WarnContext(ctx, "api_secret is empty, mutating requests are not authenticated")
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, cfg),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "data", svc.Path(), "version", version)
		serverErr <- httpServer.ListenAndServe()
	}()

	// Wait for either context cancellation or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}

// watchDataFile logs every change to the data file until ctx is done. The
// parent directory is watched since saves replace the file by renaming.
func watchDataFile(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) {
					slog.DebugContext(ctx, "Data file changed", "op", event.Op.String())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching data file", "err", err)
			}
		}
	}()
	return nil
}
