package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/TriangleYJ/spline/internal/config"
	"github.com/TriangleYJ/spline/internal/discovery"
	"github.com/TriangleYJ/spline/internal/export"
	mw "github.com/TriangleYJ/spline/internal/middleware"
	"github.com/TriangleYJ/spline/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	// "spline-server discover" lists editor servers on the LAN and exits.
	if len(os.Args) > 1 && os.Args[1] == "discover" {
		err := discovery.Browse(3*time.Second, func(p discovery.Peer) {
			fmt.Printf("%s\t%s\n", p.Addr, p.Instance)
		})
		if err != nil {
			slog.Error("discover", "error", err)
			os.Exit(1)
		}
		return
	}

	hub := session.NewHub(nil)
	go hub.Run()

	sessionHandler := session.NewHandler(hub, cfg.Origins())
	exportHandler := export.NewHandler(cfg.CanvasWidth, cfg.CanvasHeight, cfg.PublicURL)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Stateless scene endpoints, all driven by ?curves=
	r.HandleFunc("/scene", exportHandler.Scene).Methods("GET", "OPTIONS")
	r.HandleFunc("/render.json", exportHandler.Commands).Methods("GET", "OPTIONS")
	r.HandleFunc("/render.png", exportHandler.PNG).Methods("GET", "OPTIONS")
	r.HandleFunc("/render.pdf", exportHandler.PDF).Methods("GET", "OPTIONS")

	// Live sessions
	r.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/ws/session/{sessionId}", sessionHandler.Serve)

	if cfg.MDNSEnabled {
		server, err := discovery.Advertise(cfg.MDNSInstance, cfg.Port)
		if err != nil {
			slog.Warn("mdns advertisement disabled", "error", err)
		} else {
			defer server.Shutdown()
			slog.Info("advertising on mdns", "instance", cfg.MDNSInstance, "service", discovery.ServiceType)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "canvas", fmt.Sprintf("%dx%d", cfg.CanvasWidth, cfg.CanvasHeight))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
