// frameview is an internal tool for browsing, labeling, and diffing
// lane-detection evaluation tables. It serves a small web UI over an
// uploaded CSV, persists frame labels across sessions, and forwards
// ad-hoc SQL to an embedded engine.
package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"

	"github.com/lanelab/frameview/internal/config"
	"github.com/lanelab/frameview/internal/export"
	"github.com/lanelab/frameview/internal/history"
	"github.com/lanelab/frameview/internal/labelstore"
	"github.com/lanelab/frameview/internal/session"
	"github.com/lanelab/frameview/internal/web"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode    = flag.Bool("dev", false, "Serve static files from ./static instead of the embedded copy")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	configPath = flag.String("config", "", "Path to JSON config file")
	noHistory  = flag.Bool("no-history", false, "Disable the session history database")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	addr := cfg.GetListenAddr()
	if *listen != "" {
		addr = *listen
	}

	labels, err := labelstore.Open(cfg.GetLabelFile())
	if err != nil {
		log.Fatalf("failed to open label store: %v", err)
	}
	log.Printf("loaded %d stored labels from %s", labels.Len(), cfg.GetLabelFile())

	sess := session.New(labels, cfg.GetRowsPerPage())
	exporter := export.New(cfg.GetArtifactsDir())

	var hist *history.Store
	if !*noHistory {
		hist, err = history.Open(cfg.GetHistoryDB())
		if err != nil {
			log.Fatalf("failed to open history database: %v", err)
		}
		defer hist.Close()
	}

	mux := http.NewServeMux()

	apiMux := web.NewServer(sess, exporter, hist, cfg.GetImageRoots()).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	// mount the tailSQL debugging UI over the history database so past
	// sessions can be queried live
	if hist != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{
			RoutePrefix: "/debug/tailsql/",
		})
		if err != nil {
			log.Fatalf("failed to create tailsql server: %v", err)
		}
		tsql.SetDB("sqlite://history.db", hist.DB(), &tailsql.DBOptions{
			Label: "Session history",
		})
		mux.Handle("/debug/tailsql/", tsql.NewMux())
	}

	// read static files from the embedded filesystem in production or
	// from ./static in dev for easier iteration without restarting
	var staticHandler http.Handler
	if *devMode {
		staticHandler = http.FileServer(http.Dir("./static"))
	} else {
		sub, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("failed to mount static files: %v", err)
		}
		staticHandler = http.FileServer(http.FS(sub))
	}
	mux.Handle("/", staticHandler)

	server := &http.Server{
		Addr:    addr,
		Handler: web.LoggingMiddleware(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("graceful shutdown complete")
}
