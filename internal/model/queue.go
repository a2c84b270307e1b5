package model

import "time"

// Queue entry lifecycle. PENDING -> IN_PRODUCTION -> FINISHED, strictly
// forward. FINISHED is the terminal state the TMA window keys off.
const (
	EntryPending      = "PENDING"
	EntryInProduction = "IN_PRODUCTION"
	EntryFinished     = "FINISHED"
)

// QueueEntry is one physical unit of one dish within an order — the
// atomic unit of kitchen work. An order for three units of a dish fans
// out into three independently capturable entries.
type QueueEntry struct {
	ID      string  `json:"id"`
	OrderID string  `json:"order_id"`
	DishID  *string `json:"dish_id"` // nil once the dish is retired

	// PriceCents is the dish price snapshotted at order time. It never
	// changes afterwards, even if the catalog price does.
	PriceCents int64 `json:"price_cents"`

	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`  // set exactly once on capture
	FinishedAt *time.Time `json:"finished_at,omitempty"` // set exactly once on completion

	// UsedInMetric flips false -> true when a TMA batch consumes this
	// entry. It is never reset, so every entry feeds at most one metric.
	UsedInMetric bool `json:"used_in_metric"`

	CreatedAt time.Time `json:"created_at"`
}

var entryNext = map[string]string{
	EntryPending:      EntryInProduction,
	EntryInProduction: EntryFinished,
}

// ValidEntryTransition reports whether an entry status may move from -> to.
func ValidEntryTransition(from, to string) bool {
	if from == to {
		return true
	}
	return entryNext[from] == to
}
