package model

import "time"

// Dish is a catalog item. The queue core reads it, never owns it: the
// unit price is snapshotted onto queue entries at order time and the
// prep estimate only serves as the TMA fallback.
type Dish struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PriceCents  int64     `json:"price_cents"`
	PrepSeconds int       `json:"prep_seconds"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
