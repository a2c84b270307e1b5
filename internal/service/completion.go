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
	ErrEntryNotFound        = errors.New("queue entry not found")
	ErrEntryNotInProduction = errors.New("queue entry is not in production")
	ErrBadEntryID           = errors.New("malformed entry id")
)

func parseEntryID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrBadEntryID
	}
	return nil
}

type CompletionService struct {
	db      *sql.DB
	metrics *MetricsService
	events  notify.Publisher
}

func NewCompletionService(db *sql.DB, metrics *MetricsService, events notify.Publisher) *CompletionService {
	return &CompletionService{db: db, metrics: metrics, events: events}
}

// Complete finishes a queue entry and, when it was the order's last open
// entry, completes the order — both in one transaction. Completing an
// already finished entry is an idempotent no-op so duplicate calls from
// the kitchen stay benign.
//
// The TMA batch check runs after the commit: a metric failure must not
// undo a completion. The unconsumed entries keep the batch open, so a
// failed metric write is retried on the next completion or by the
// sweeper.
func (s *CompletionService) Complete(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	if err := parseEntryID(entryID); err != nil {
		return nil, err
	}

	entry, completedOrder, already, err := s.finish(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if already {
		return entry, nil
	}

	s.publish(ctx, notify.StatusEvent{
		Event:   "entry_finished",
		OrderID: entry.OrderID,
		EntryID: entry.ID,
	})
	if completedOrder {
		s.publish(ctx, notify.StatusEvent{
			Event:   "order_completed",
			OrderID: entry.OrderID,
		})
	}

	if metric, err := s.metrics.CloseBatch(ctx, entry.DishID); err != nil {
		slog.Error("TMA batch close failed; batch stays open for retry", "entry", entry.ID, "error", err)
	} else if metric != nil {
		slog.Info("TMA batch closed", "metric", metric.ID, "avg_seconds", metric.AvgSeconds)
	}

	return entry, nil
}

// finish runs the transactional part: the guarded IN_PRODUCTION ->
// FINISHED transition plus the parent-order rollup. completedOrder
// reports whether this call completed the order; already reports the
// idempotent duplicate case.
func (s *CompletionService) finish(ctx context.Context, entryID string) (entry *model.QueueEntry, completedOrder, already bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var e model.QueueEntry
	err = tx.QueryRowContext(ctx,
		`UPDATE queue_entries SET status = $1, finished_at = now()
		 WHERE id = $2 AND status = $3
		 RETURNING id, order_id, dish_id, price_cents, status, started_at, finished_at, used_in_metric, created_at`,
		model.EntryFinished, entryID, model.EntryInProduction,
	).Scan(&e.ID, &e.OrderID, &e.DishID, &e.PriceCents, &e.Status, &e.StartedAt, &e.FinishedAt, &e.UsedInMetric, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.finishMiss(ctx, tx, entryID)
		}
		return nil, false, false, fmt.Errorf("finish entry: %w", err)
	}

	// Lock the parent order before counting its open entries. Two
	// workers finishing the order's last two entries each hold a lock
	// only on their own entry row; without the order lock both counts
	// would still see the sibling as open and neither would roll up.
	var orderID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, e.OrderID).Scan(&orderID)
	if err != nil {
		return nil, false, false, fmt.Errorf("lock order: %w", err)
	}

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_entries WHERE order_id = $1 AND status <> $2`,
		e.OrderID, model.EntryFinished,
	).Scan(&remaining)
	if err != nil {
		return nil, false, false, fmt.Errorf("count open entries: %w", err)
	}

	if remaining == 0 {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1 WHERE id = $2 AND status <> $1`,
			model.OrderCompleted, e.OrderID,
		)
		if err != nil {
			return nil, false, false, fmt.Errorf("complete order: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			completedOrder = true
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, false, false, fmt.Errorf("commit tx: %w", err)
	}

	return &e, completedOrder, false, nil
}

// finishMiss resolves a failed guard: a finished entry means someone
// already completed it (idempotent success), a pending one means it was
// never captured (conflict), anything else is not found.
func (s *CompletionService) finishMiss(ctx context.Context, tx *sql.Tx, entryID string) (*model.QueueEntry, bool, bool, error) {
	var e model.QueueEntry
	err := tx.QueryRowContext(ctx,
		`SELECT id, order_id, dish_id, price_cents, status, started_at, finished_at, used_in_metric, created_at
		 FROM queue_entries WHERE id = $1`,
		entryID,
	).Scan(&e.ID, &e.OrderID, &e.DishID, &e.PriceCents, &e.Status, &e.StartedAt, &e.FinishedAt, &e.UsedInMetric, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, false, ErrEntryNotFound
		}
		return nil, false, false, fmt.Errorf("get entry: %w", err)
	}

	if e.Status == model.EntryFinished {
		return &e, false, true, nil
	}
	return nil, false, false, ErrEntryNotInProduction
}

func (s *CompletionService) publish(ctx context.Context, ev notify.StatusEvent) {
	ev.OccurredAt = time.Now().UTC()
	if err := s.events.PublishStatus(ctx, ev); err != nil {
		slog.Error("failed to publish status event", "event", ev.Event, "order", ev.OrderID, "error", err)
	}
}
