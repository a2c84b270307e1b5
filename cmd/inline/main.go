package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"inline/internal/config"
	"inline/internal/database"
	"inline/internal/handler"
	"inline/internal/mw"
	"inline/internal/notify"
	"inline/internal/service"
	"inline/internal/worker"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(context.Background(), db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Status events are optional; without a broker they are dropped.
	events := notify.NewNop()
	if cfg.AMQPURL != "" {
		events, err = notify.Dial(cfg.AMQPURL)
		if err != nil {
			slog.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer events.Close()
	}

	// Services
	catalogSvc := service.NewCatalogService(db)
	orderSvc := service.NewOrderService(db, events)
	captureSvc := service.NewCaptureService(db)
	metricsSvc := service.NewMetricsService(db)
	completionSvc := service.NewCompletionService(db, metricsSvc, events)
	panelSvc := service.NewPanelService(db)

	// Worker
	sweeper := worker.NewMetricsSweeper(metricsSvc, cfg.SweepInterval)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog and dashboards stay reachable without a license.
		r.Post("/dishes", handler.CreateDishHandler(catalogSvc))
		r.Get("/dishes", handler.ListDishesHandler(catalogSvc))
		r.Get("/dishes/tma", handler.TMADashboardHandler(metricsSvc))
		r.Get("/dishes/{id}/tma", handler.DishTMAHandler(catalogSvc, metricsSvc))

		// Licensed operations
		r.Group(func(r chi.Router) {
			r.Use(mw.LicenseMiddleware(cfg.LicenseKey, cfg.LicenseSecret))

			r.Post("/orders", handler.CreateOrderHandler(orderSvc))
			r.Get("/orders/next", handler.PeekOrdersHandler(orderSvc))
			r.Post("/orders/next", handler.CaptureOrderHandler(orderSvc))

			r.Post("/queue/capture", handler.CaptureEntryHandler(captureSvc))
			r.Post("/queue/{id}/complete", handler.CompleteEntryHandler(completionSvc))
			r.Get("/queue/panel", handler.PanelHandler(panelSvc))
		})
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
