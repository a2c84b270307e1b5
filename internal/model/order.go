package model

import (
	"strings"
	"time"
)

// Class of service. Priority orders jump ahead of normal ones in every
// queue ordering; within a class the oldest order wins.
const (
	ClassNormal   = "NORMAL"
	ClassPriority = "PRIORITY"
)

// Order lifecycle. Transitions only move forward.
const (
	OrderPending    = "PENDING"
	OrderInProgress = "IN_PROGRESS"
	OrderCompleted  = "COMPLETED"
)

type Order struct {
	ID         string    `json:"id"`
	Class      string    `json:"class"`
	Status     string    `json:"status"` // PENDING, IN_PROGRESS, COMPLETED
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

func ValidClass(class string) bool {
	return class == ClassNormal || class == ClassPriority
}

// ClassRank maps a class of service to its queue precedence: priority
// ranks before normal. Must stay in sync with the SQL ordering used by
// the capture and panel queries.
func ClassRank(class string) int {
	if class == ClassPriority {
		return 0
	}
	return 1
}

var orderNext = map[string]string{
	OrderPending:    OrderInProgress,
	OrderInProgress: OrderCompleted,
}

// ValidOrderTransition reports whether an order status may move from -> to.
// Self-transitions are allowed so duplicate updates stay idempotent.
func ValidOrderTransition(from, to string) bool {
	if from == to {
		return true
	}
	return orderNext[from] == to
}

// TicketCode is the short code the counter calls out for a captured order.
func (o Order) TicketCode() string {
	code := strings.ToUpper(o.ID)
	if len(code) > 4 {
		code = code[:4]
	}
	return code
}
