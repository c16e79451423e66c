package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/portrait/portrait/internal/auth"
	"github.com/portrait/portrait/internal/config"
	"github.com/portrait/portrait/internal/discovery"
	"github.com/portrait/portrait/internal/export"
	mw "github.com/portrait/portrait/internal/middleware"
	"github.com/portrait/portrait/internal/relay"
	"github.com/portrait/portrait/internal/room"
	"github.com/portrait/portrait/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	editLog, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Limit: cfg.HistoryLimit})
	if err != nil {
		slog.Error("open edit log", "error", err)
		os.Exit(1)
	}
	defer editLog.Close()

	verifier := auth.NewVerifier(cfg.JWTSecret)

	hub := relay.NewHub(relay.HubOptions{
		Store:         editLog,
		AppendTimeout: cfg.AppendTimeout,
	})
	go hub.Run(ctx)

	roomHandler := room.NewHandler(room.NewService(editLog, hub))
	exportHandler := export.NewHandler(editLog, nil)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if cfg.DevTokens {
		slog.Warn("dev token endpoint enabled")
		r.HandleFunc("/auth/token", auth.NewHandler(verifier).Token).Methods("POST", "OPTIONS")
	}

	// Realtime relay; the token travels as ?token= or a Bearer header.
	r.Handle("/ws", relay.NewHandler(hub, verifier, cfg.Origins()))

	// Protected room routes
	rooms := r.PathPrefix("/rooms").Subrouter()
	rooms.Use(verifier.Middleware)

	rooms.HandleFunc("", roomHandler.List).Methods("GET")
	rooms.HandleFunc("/{roomId}/history", roomHandler.History).Methods("GET")
	rooms.HandleFunc("/{roomId}/members", roomHandler.Members).Methods("GET")
	rooms.HandleFunc("/{roomId}/export.pdf", exportHandler.ExportPDF).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MDNSEnabled {
		advert, err := discovery.Advertise(cfg.MDNSInstance, cfg.Port)
		if err != nil {
			slog.Warn("mdns advertisement disabled", "error", err)
		} else {
			slog.Info("advertising relay", "service", discovery.ServiceType, "instance", cfg.MDNSInstance)
			defer advert.Shutdown()
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every connection gets a close frame.
		cancel()
		<-hub.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.DatabaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
