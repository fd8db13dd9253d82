package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arterycheck/arterycheck/server/internal/alerts"
	"github.com/arterycheck/arterycheck/server/internal/api"
	"github.com/arterycheck/arterycheck/server/internal/config"
	"github.com/arterycheck/arterycheck/server/internal/education"
	"github.com/arterycheck/arterycheck/server/internal/intake"
	"github.com/arterycheck/arterycheck/server/internal/metrics"
	"github.com/arterycheck/arterycheck/server/internal/store"
	"github.com/arterycheck/arterycheck/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses defaults and ARTERYCHECK_* environment only")
	uiDir := flag.String("ui-dir", "", "serve the dashboard UI static files from this directory; overrides server.ui_dir")
	flag.Parse()

	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})))

	slog.Info("arterycheck-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Log.SlogLevel())
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, cfg.Server.Log.Format, &level)))

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"storage", cfg.Server.Storage.Backend,
		"broadcast_interval", cfg.Server.Broadcast.Interval,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(cfg.Server.Storage)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Server.Storage.Backend, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	catalog, err := education.Load()
	if err != nil {
		slog.Error("failed to load education catalog", "err", err)
		os.Exit(1)
	}

	// Alerts engine evaluates rules on every recorded assessment.
	alertEngine := alerts.New(cfg.Server.Alerts)

	// hub is assigned below; OnChange only fires once requests are served.
	var hub *ws.Hub
	handler := api.New(api.Options{
		Store:             st,
		Intake:            intake.New(st, alertEngine),
		Catalog:           catalog,
		Alerts:            alertEngine,
		RecentAssessments: cfg.Server.RecentAssessments,
		OnChange:          func() { hub.Notify() },
	})

	// Reload alert rules and log level when the config file changes. Port,
	// storage and broadcast interval need a restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				alertEngine.SetConfig(c.Server.Alerts)
				level.Set(c.Server.Log.SlogLevel())
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	// WebSocket hub pushes the dashboard to UI clients.
	hub = ws.New(handler, cfg.Server.Broadcast.Interval)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", handler)
	httpMux.Handle("/ws/dashboard", hub)
	httpMux.Handle("/metrics", metrics.New(st, alertEngine))

	dir := cfg.Server.UIDir
	if *uiDir != "" {
		dir = *uiDir
	}
	if dir != "" {
		httpMux.Handle("/", spaHandler(dir))
		slog.Info("serving UI static files", "dir", dir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("arterycheck-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

func openStore(c config.StorageConfig) (store.Store, error) {
	switch c.Backend {
	case "sqlite":
		db, err := store.OpenSQLite(c.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return store.NewMemory(), nil
	}
}

func newLogHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// spaHandler serves files from dir and falls back to index.html for unknown
// paths so client-side routing works.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
