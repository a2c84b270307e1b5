package database

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS dishes (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name TEXT NOT NULL,
    price_cents BIGINT NOT NULL,
    prep_seconds INT NOT NULL DEFAULT 300,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    class TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    total_cents BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS queue_entries (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    dish_id UUID REFERENCES dishes(id) ON DELETE SET NULL,
    price_cents BIGINT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    started_at TIMESTAMPTZ,
    finished_at TIMESTAMPTZ,
    used_in_metric BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tma_metrics (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    dish_id UUID REFERENCES dishes(id) ON DELETE CASCADE,
    avg_seconds DOUBLE PRECISION NOT NULL,
    last_entry_id UUID,
    computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_status_class_created ON orders(status, class, created_at);
CREATE INDEX IF NOT EXISTS idx_queue_dish_status_created ON queue_entries(dish_id, status, created_at);
CREATE INDEX IF NOT EXISTS idx_queue_status_created ON queue_entries(status, created_at);
CREATE INDEX IF NOT EXISTS idx_queue_order_status ON queue_entries(order_id, status);
CREATE INDEX IF NOT EXISTS idx_queue_metric_window ON queue_entries(used_in_metric, status, finished_at);
CREATE INDEX IF NOT EXISTS idx_tma_dish_computed ON tma_metrics(dish_id, computed_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
