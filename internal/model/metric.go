package model

import "time"

// TMAMetric is one closed turnaround-time window: the average seconds
// per item over a batch of exactly ten finished entries. Rows are
// append-only; LastEntryID records which entry closed the batch.
type TMAMetric struct {
	ID          string    `json:"id"`
	DishID      *string   `json:"dish_id"` // nil for the unscoped batch
	AvgSeconds  float64   `json:"avg_seconds"`
	LastEntryID string    `json:"last_entry_id"`
	ComputedAt  time.Time `json:"computed_at"`
}
