package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const statusExchange = "inline.status"

// StatusEvent is the display-side notification published when an order
// or queue entry changes state. Consumers (monitors, pickup screens)
// subscribe to the fanout exchange; the core never reads these back.
type StatusEvent struct {
	Event      string    `json:"event"` // order_created, entry_finished, order_completed
	OrderID    string    `json:"order_id"`
	EntryID    string    `json:"entry_id,omitempty"`
	Class      string    `json:"class,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
	Close() error
}

type amqpPublisher struct {
	conn *amqp.Connection
}

// Dial connects to the broker and declares the status exchange.
func Dial(url string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(statusExchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &amqpPublisher{conn: conn}, nil
}

func (p *amqpPublisher) PublishStatus(ctx context.Context, ev StatusEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, statusExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

type nopPublisher struct{}

// NewNop returns a publisher that drops every event. Used when no
// broker is configured.
func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) PublishStatus(context.Context, StatusEvent) error { return nil }
func (nopPublisher) Close() error                                     { return nil }
