package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"inline/internal/service"
)

type createOrderRequest struct {
	Class string              `json:"class"`
	Items []service.OrderItem `json:"items"`
}

type createOrderResponse struct {
	ID         string `json:"id"`
	TotalCents int64  `json:"total_cents"`
	Status     string `json:"status"`
}

func CreateOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := service.ValidateOrderRequest(req.Class, req.Items); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		order, err := orderSvc.Create(r.Context(), req.Class, req.Items)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrDishNotFound), errors.Is(err, service.ErrDishInactive):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			default:
				slog.Error("order create failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(createOrderResponse{
			ID:         order.ID,
			TotalCents: order.TotalCents,
			Status:     order.Status,
		}); err != nil {
			slog.Error("encode order failed", "error", err)
		}
	}
}

func PeekOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		orders, err := orderSvc.PeekPending(r.Context(), 10)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(orders); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

type capturedOrderResponse struct {
	OrderID string `json:"order_id"`
	Ticket  string `json:"ticket"`
	Class   string `json:"class"`
}

func CaptureOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		order, err := orderSvc.CaptureOrder(r.Context())
		if err != nil {
			slog.Error("order capture failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if order == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(capturedOrderResponse{
			OrderID: order.ID,
			Ticket:  order.TicketCode(),
			Class:   order.Class,
		}); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}
