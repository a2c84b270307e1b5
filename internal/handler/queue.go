package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inline/internal/service"
)

// dishFilter reads an optional dish_id query parameter. A nil result
// means no filter.
func dishFilter(r *http.Request) (*string, error) {
	raw := r.URL.Query().Get("dish_id")
	if raw == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return nil, errors.New("malformed dish_id")
	}
	return &raw, nil
}

type capturedEntryResponse struct {
	EntryID   string `json:"entry_id"`
	OrderID   string `json:"order_id"`
	Class     string `json:"class"`
	StartedAt string `json:"started_at"`
}

func CaptureEntryHandler(captureSvc *service.CaptureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dishID, err := dishFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		captured, err := captureSvc.CaptureNext(r.Context(), dishID)
		if err != nil {
			slog.Error("entry capture failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if captured == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		resp := capturedEntryResponse{
			EntryID: captured.Entry.ID,
			OrderID: captured.Entry.OrderID,
			Class:   captured.Class,
		}
		if captured.Entry.StartedAt != nil {
			resp.StartedAt = captured.Entry.StartedAt.UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

func CompleteEntryHandler(completionSvc *service.CompletionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		entryID := chi.URLParam(r, "id")

		entry, err := completionSvc.Complete(r.Context(), entryID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrBadEntryID):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, service.ErrEntryNotFound):
				http.Error(w, "entry not found", http.StatusNotFound)
			case errors.Is(err, service.ErrEntryNotInProduction):
				http.Error(w, "entry is not in production", http.StatusConflict)
			default:
				slog.Error("entry completion failed", "entry", entryID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

func PanelHandler(panelSvc *service.PanelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dishID, err := dishFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
		}

		panel, err := panelSvc.Snapshot(r.Context(), dishID, limit)
		if err != nil {
			slog.Error("panel snapshot failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(panel); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}
