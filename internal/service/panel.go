package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inline/internal/model"
)

// PanelEntry is one row of the kitchen display. WaitingSeconds is
// measured from entry creation at snapshot time.
type PanelEntry struct {
	EntryID        string     `json:"entry_id"`
	OrderID        string     `json:"order_id"`
	Class          string     `json:"class"`
	DishName       *string    `json:"dish_name,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	WaitingSeconds int64      `json:"waiting_seconds"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Panel is an eventually-consistent snapshot of one station's queue:
// what is on the stoves now and what is waiting, in capture order.
type Panel struct {
	InProduction []PanelEntry `json:"in_production"`
	Pending      []PanelEntry `json:"pending"`
}

type PanelService struct {
	db *sql.DB
}

func NewPanelService(db *sql.DB) *PanelService {
	return &PanelService{db: db}
}

// clampPanelLimit defaults a non-positive limit to 50 and caps the
// rest at 200, so an oversized request still gets the maximum page.
func clampPanelLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func (s *PanelService) Snapshot(ctx context.Context, dishID *string, limit int) (*Panel, error) {
	limit = clampPanelLimit(limit)

	inProduction, err := s.listEntries(ctx, dishID, model.EntryInProduction, "q.started_at ASC, q.id ASC", limit)
	if err != nil {
		return nil, err
	}

	pending, err := s.listEntries(ctx, dishID, model.EntryPending, classRankOrder("o.class", "q"), limit)
	if err != nil {
		return nil, err
	}

	return &Panel{InProduction: inProduction, Pending: pending}, nil
}

func (s *PanelService) listEntries(ctx context.Context, dishID *string, status, orderBy string, limit int) ([]PanelEntry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT q.id, q.order_id, o.class, d.name, q.started_at, q.created_at
		 FROM queue_entries q
		 JOIN orders o ON o.id = q.order_id
		 LEFT JOIN dishes d ON d.id = q.dish_id
		 WHERE q.status = $1 AND ($2::uuid IS NULL OR q.dish_id = $2)
		 ORDER BY %s
		 LIMIT $3`, orderBy),
		status, dishID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query panel entries: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var entries []PanelEntry
	for rows.Next() {
		var e PanelEntry
		if err := rows.Scan(&e.EntryID, &e.OrderID, &e.Class, &e.DishName, &e.StartedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan panel entry: %w", err)
		}
		e.WaitingSeconds = int64(now.Sub(e.CreatedAt).Seconds())
		if e.WaitingSeconds < 0 {
			e.WaitingSeconds = 0
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return entries, nil
}
