package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tradeframe/entity-ledger/internal/api"
	"github.com/tradeframe/entity-ledger/internal/feed"
	"github.com/tradeframe/entity-ledger/internal/ledger"
	"github.com/tradeframe/entity-ledger/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Ledger ---
	led := ledger.New(nil)

	if raw := os.Getenv("ORDERS_KEEP"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil {
			err = led.SetOrdersKeepCount(n)
		}
		if err != nil {
			slog.Error("invalid ORDERS_KEEP", "value", raw, "err", err)
			os.Exit(1)
		}
	}
	if raw := os.Getenv("TRADES_KEEP"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil {
			err = led.SetTradesKeepCount(n)
		}
		if err != nil {
			slog.Error("invalid TRADES_KEEP", "value", raw, "err", err)
			os.Exit(1)
		}
	}

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- Simulated feed ---
	feedCfg := feed.Config{}
	if raw := os.Getenv("FEED_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			slog.Error("invalid FEED_WORKERS", "value", raw)
			os.Exit(1)
		}
		feedCfg.Workers = n
	}
	if raw := os.Getenv("FEED_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			slog.Error("invalid FEED_INTERVAL", "value", raw)
			os.Exit(1)
		}
		feedCfg.Interval = d
	}
	if raw := os.Getenv("FEED_SECURITIES"); raw != "" {
		feedCfg.Securities = strings.Split(raw, ",")
	}
	if raw := os.Getenv("FEED_PORTFOLIOS"); raw != "" {
		feedCfg.Portfolios = strings.Split(raw, ",")
	}

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	if os.Getenv("FEED_DISABLED") == "" {
		f, err := feed.New(led, hub, feedCfg)
		if err != nil {
			slog.Error("feed setup failed", "err", err)
			os.Exit(1)
		}
		go f.Run(feedCtx)
		slog.Info("simulated feed started", "workers", feedCfg.Workers)
	} else {
		slog.Warn("FEED_DISABLED set, ledger starts empty")
	}

	// --- Inspection service ---
	svc := api.NewService(led)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"entity-ledger"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time entity events.
		r.Get("/ws", hub.HandleWS)

		svc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("entity-ledger listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopFeed()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down entity-ledger...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("entity-ledger stopped")
}
