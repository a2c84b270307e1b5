package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"inline/internal/model"
	"inline/internal/notify"
)

var (
	ErrEmptyOrder   = errors.New("order has no items")
	ErrUnknownClass = errors.New("unknown class of service")
	ErrBadQuantity  = errors.New("quantity must be a positive integer")
	ErrBadDishID    = errors.New("malformed dish id")
)

// OrderItem is one (dish, quantity) pair of a create-order request.
type OrderItem struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
}

type OrderService struct {
	db     *sql.DB
	events notify.Publisher
}

func NewOrderService(db *sql.DB, events notify.Publisher) *OrderService {
	return &OrderService{db: db, events: events}
}

// ValidateOrderRequest rejects a create-order payload before any
// mutation happens: bad payloads must leave no partial state behind.
func ValidateOrderRequest(class string, items []OrderItem) error {
	if !model.ValidClass(class) {
		return ErrUnknownClass
	}
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrBadQuantity
		}
		if _, err := uuid.Parse(item.DishID); err != nil {
			return ErrBadDishID
		}
	}
	return nil
}

// Create places an order: it snapshots each dish's current price, fans
// every requested unit out into its own queue entry, and stores the sum
// as the order total. Everything happens in one transaction, so a
// missing or inactive dish aborts the whole order.
func (s *OrderService) Create(ctx context.Context, class string, items []OrderItem) (*model.Order, error) {
	if err := ValidateOrderRequest(class, items); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	order := model.Order{Class: class, Status: model.OrderPending}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (class, status, total_cents) VALUES ($1, $2, 0) RETURNING id, created_at`,
		class, model.OrderPending,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	var total int64
	for _, item := range items {
		var priceCents int64
		var active bool
		err = tx.QueryRowContext(ctx,
			`SELECT price_cents, active FROM dishes WHERE id = $1`,
			item.DishID,
		).Scan(&priceCents, &active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("dish %s: %w", item.DishID, ErrDishNotFound)
			}
			return nil, fmt.Errorf("get dish: %w", err)
		}
		if !active {
			return nil, fmt.Errorf("dish %s: %w", item.DishID, ErrDishInactive)
		}

		for i := 0; i < item.Quantity; i++ {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO queue_entries (order_id, dish_id, price_cents, status) VALUES ($1, $2, $3, $4)`,
				order.ID, item.DishID, priceCents, model.EntryPending,
			)
			if err != nil {
				return nil, fmt.Errorf("insert queue entry: %w", err)
			}
		}

		total += priceCents * int64(item.Quantity)
	}

	_, err = tx.ExecContext(ctx, `UPDATE orders SET total_cents = $1 WHERE id = $2`, total, order.ID)
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	order.TotalCents = total

	s.publish(ctx, notify.StatusEvent{
		Event:   "order_created",
		OrderID: order.ID,
		Class:   order.Class,
	})

	return &order, nil
}

// PeekPending lists the front of the order queue, priority class first,
// oldest first within a class.
func (s *OrderService) PeekPending(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, class, status, total_cents, created_at FROM orders
		 WHERE status = $1 ORDER BY %s LIMIT $2`,
		classRankOrder("class", "orders")),
		model.OrderPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Class, &o.Status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

// CaptureOrder claims the front pending order for the counter. This is
// the pessimistic variant of the capture discipline: the row lock held
// for the transaction serializes concurrent counters, so at most one of
// them transitions any given order to IN_PROGRESS. SKIP LOCKED moves a
// concurrent counter past a row already claimed instead of returning it
// empty-handed while later orders are still pending. Returns nil when
// no order is pending.
func (s *OrderService) CaptureOrder(ctx context.Context) (*model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var o model.Order
	err = tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, class, status, total_cents, created_at FROM orders
		 WHERE status = $1 ORDER BY %s LIMIT 1 FOR UPDATE SKIP LOCKED`,
		classRankOrder("class", "orders")),
		model.OrderPending,
	).Scan(&o.ID, &o.Class, &o.Status, &o.TotalCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select front order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, model.OrderInProgress, o.ID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	o.Status = model.OrderInProgress

	return &o, nil
}

func (s *OrderService) publish(ctx context.Context, ev notify.StatusEvent) {
	ev.OccurredAt = time.Now().UTC()
	if err := s.events.PublishStatus(ctx, ev); err != nil {
		slog.Error("failed to publish status event", "event", ev.Event, "order", ev.OrderID, "error", err)
	}
}
