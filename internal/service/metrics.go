package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inline/internal/model"
)

// metricBatchSize is the fixed window: one TMA row per ten finished
// entries. Fixed batches trade metric latency for not having to keep
// streaming window state.
const metricBatchSize = 10

type MetricsService struct {
	db *sql.DB
}

func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db}
}

// batchAverageSeconds computes the per-item average for a closed batch:
// the span from the first entry entering production to the last entry
// finishing, divided by the batch size. Clamped at zero to absorb clock
// skew between the two instants.
func batchAverageSeconds(firstStarted, lastFinished time.Time, size int) float64 {
	elapsed := lastFinished.Sub(firstStarted)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Seconds() / float64(size)
}

// CloseBatch checks whether a dish scope has accumulated a full batch of
// finished, not-yet-consumed entries and, if so, records one TMA row and
// marks the batch consumed — all in one transaction. The selected rows
// are locked for the transaction, so two concurrent invocations can
// never consume overlapping batches. A nil dish id addresses entries
// whose dish reference has been cleared.
//
// Returns (nil, nil) while the batch is still open; that is the normal
// low-volume outcome, not an error.
func (s *MetricsService) CloseBatch(ctx context.Context, dishID *string) (*model.TMAMetric, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, started_at, finished_at FROM queue_entries
		 WHERE status = $1 AND used_in_metric = FALSE AND finished_at IS NOT NULL
		   AND (($2::uuid IS NULL AND dish_id IS NULL) OR dish_id = $2)
		 ORDER BY finished_at ASC, id ASC
		 LIMIT $3
		 FOR UPDATE`,
		model.EntryFinished, dishID, metricBatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("select batch: %w", err)
	}

	var (
		ids          []string
		firstStarted *time.Time
		lastFinished time.Time
	)
	for rows.Next() {
		var id string
		var startedAt, finishedAt *time.Time
		if err := rows.Scan(&id, &startedAt, &finishedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan batch entry: %w", err)
		}
		if len(ids) == 0 {
			firstStarted = startedAt
		}
		ids = append(ids, id)
		lastFinished = *finishedAt
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if len(ids) < metricBatchSize {
		return nil, nil
	}
	if firstStarted == nil {
		return nil, errors.New("batch head has no start time")
	}

	metric := model.TMAMetric{
		DishID:      dishID,
		AvgSeconds:  batchAverageSeconds(*firstStarted, lastFinished, metricBatchSize),
		LastEntryID: ids[len(ids)-1],
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tma_metrics (dish_id, avg_seconds, last_entry_id) VALUES ($1, $2, $3)
		 RETURNING id, computed_at`,
		dishID, metric.AvgSeconds, metric.LastEntryID,
	).Scan(&metric.ID, &metric.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("insert metric: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE queue_entries SET used_in_metric = TRUE WHERE id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("consume batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != metricBatchSize {
		return nil, fmt.Errorf("consumed %d of %d batch entries", n, metricBatchSize)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &metric, nil
}

// Latest returns the most recent metric for a dish, or nil when fewer
// than a full batch has ever finished for it.
func (s *MetricsService) Latest(ctx context.Context, dishID string) (*model.TMAMetric, error) {
	var m model.TMAMetric
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dish_id, avg_seconds, last_entry_id, computed_at FROM tma_metrics
		 WHERE dish_id = $1 ORDER BY computed_at DESC LIMIT 1`,
		dishID,
	).Scan(&m.ID, &m.DishID, &m.AvgSeconds, &m.LastEntryID, &m.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest metric: %w", err)
	}
	return &m, nil
}

// DishTMA is one dashboard row: the freshest TMA for a dish, falling
// back to its static prep estimate when no metric exists yet.
type DishTMA struct {
	DishID     string  `json:"dish_id"`
	Name       string  `json:"name"`
	TMASeconds float64 `json:"tma_seconds"`
	HasMetric  bool    `json:"has_metric"`
}

func (s *MetricsService) Dashboard(ctx context.Context) ([]DishTMA, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.prep_seconds, m.avg_seconds
		 FROM dishes d
		 LEFT JOIN LATERAL (
		     SELECT avg_seconds FROM tma_metrics
		     WHERE dish_id = d.id ORDER BY computed_at DESC LIMIT 1
		 ) m ON TRUE
		 WHERE d.active
		 ORDER BY d.name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard: %w", err)
	}
	defer rows.Close()

	var out []DishTMA
	for rows.Next() {
		var row DishTMA
		var prepSeconds int
		var avg sql.NullFloat64
		if err := rows.Scan(&row.DishID, &row.Name, &prepSeconds, &avg); err != nil {
			return nil, fmt.Errorf("scan dashboard row: %w", err)
		}
		if avg.Valid {
			row.TMASeconds = avg.Float64
			row.HasMetric = true
		} else {
			row.TMASeconds = float64(prepSeconds)
		}
		out = append(out, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return out, nil
}

// ReadyScopes lists the dish scopes that currently hold at least one
// full unconsumed batch. The sweeper uses it to retry metric writes
// that failed at completion time.
func (s *MetricsService) ReadyScopes(ctx context.Context) ([]*string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dish_id FROM queue_entries
		 WHERE status = $1 AND used_in_metric = FALSE AND finished_at IS NOT NULL
		 GROUP BY dish_id
		 HAVING COUNT(*) >= $2`,
		model.EntryFinished, metricBatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query ready scopes: %w", err)
	}
	defer rows.Close()

	var scopes []*string
	for rows.Next() {
		var dishID *string
		if err := rows.Scan(&dishID); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		scopes = append(scopes, dishID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return scopes, nil
}
