package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inline/internal/service"
)

type createDishRequest struct {
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	PrepSeconds int    `json:"prep_seconds"`
}

func CreateDishHandler(catalogSvc *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req createDishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.PriceCents <= 0 {
			http.Error(w, "name and a positive price are required", http.StatusUnprocessableEntity)
			return
		}

		dish, err := catalogSvc.Create(r.Context(), req.Name, req.PriceCents, req.PrepSeconds)
		if err != nil {
			slog.Error("dish create failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(dish); err != nil {
			slog.Error("encode dish failed", "error", err)
		}
	}
}

func ListDishesHandler(catalogSvc *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dishes, err := catalogSvc.ListActive(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(dishes) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(dishes); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

type dishTMAResponse struct {
	DishID     string  `json:"dish_id"`
	TMASeconds float64 `json:"tma_seconds"`
	HasMetric  bool    `json:"has_metric"`
}

// DishTMAHandler answers the latest turnaround average for one dish,
// falling back to the dish's static prep estimate while fewer than a
// full batch has been finished.
func DishTMAHandler(catalogSvc *service.CatalogService, metricsSvc *service.MetricsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dishID := chi.URLParam(r, "id")
		if _, err := uuid.Parse(dishID); err != nil {
			http.Error(w, "malformed dish id", http.StatusBadRequest)
			return
		}

		dish, err := catalogSvc.Lookup(r.Context(), dishID)
		if err != nil {
			if errors.Is(err, service.ErrDishNotFound) {
				http.Error(w, "dish not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		metric, err := metricsSvc.Latest(r.Context(), dishID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := dishTMAResponse{DishID: dish.ID, TMASeconds: float64(dish.PrepSeconds)}
		if metric != nil {
			resp.TMASeconds = metric.AvgSeconds
			resp.HasMetric = true
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

func TMADashboardHandler(metricsSvc *service.MetricsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := metricsSvc.Dashboard(r.Context())
		if err != nil {
			slog.Error("TMA dashboard failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}
