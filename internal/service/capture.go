package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inline/internal/model"
)

// classRankOrder builds the one queue comparator every component shares:
// priority class first, then creation time, then id so the order is
// total and ties break deterministically. classCol is the column holding
// the class of service, row the table or alias whose created_at/id
// break ties.
func classRankOrder(classCol, row string) string {
	return fmt.Sprintf(
		"CASE WHEN %s = '%s' THEN 0 ELSE 1 END ASC, %s.created_at ASC, %s.id ASC",
		classCol, model.ClassPriority, row, row,
	)
}

// Captured is a freshly claimed queue entry together with its order's
// class of service.
type Captured struct {
	Entry model.QueueEntry `json:"entry"`
	Class string           `json:"class"`
}

type CaptureService struct {
	db *sql.DB
}

func NewCaptureService(db *sql.DB) *CaptureService {
	return &CaptureService{db: db}
}

// CaptureNext claims the next pending queue entry, optionally limited to
// one dish. The claim is a conditional update guarded on the entry still
// being PENDING, so under concurrent callers at most one wins any given
// entry; a caller that loses the race moves on to the next candidate
// instead of failing. Returns nil when nothing is pending.
func (s *CaptureService) CaptureNext(ctx context.Context, dishID *string) (*Captured, error) {
	for {
		var candidateID, class string
		err := s.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT q.id, o.class
			 FROM queue_entries q
			 JOIN orders o ON o.id = q.order_id
			 WHERE q.status = $1 AND ($2::uuid IS NULL OR q.dish_id = $2)
			 ORDER BY %s
			 LIMIT 1`,
			classRankOrder("o.class", "q")),
			model.EntryPending, dishID,
		).Scan(&candidateID, &class)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select candidate: %w", err)
		}

		entry, err := s.claim(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			// Another caller won this candidate; try the next one.
			continue
		}

		return &Captured{Entry: *entry, Class: class}, nil
	}
}

// claim performs the guarded PENDING -> IN_PRODUCTION transition and
// promotes the parent order in the same transaction. A nil entry with a
// nil error means the guard failed (race lost).
func (s *CaptureService) claim(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var e model.QueueEntry
	err = tx.QueryRowContext(ctx,
		`UPDATE queue_entries SET status = $1, started_at = now()
		 WHERE id = $2 AND status = $3
		 RETURNING id, order_id, dish_id, price_cents, status, started_at, finished_at, used_in_metric, created_at`,
		model.EntryInProduction, entryID, model.EntryPending,
	).Scan(&e.ID, &e.OrderID, &e.DishID, &e.PriceCents, &e.Status, &e.StartedAt, &e.FinishedAt, &e.UsedInMetric, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim entry: %w", err)
	}

	// First captured entry moves the order forward; the guard keeps the
	// transition one-way.
	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		model.OrderInProgress, e.OrderID, model.OrderPending,
	)
	if err != nil {
		return nil, fmt.Errorf("promote order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &e, nil
}
