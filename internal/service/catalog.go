package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inline/internal/model"
)

var (
	ErrDishNotFound = errors.New("dish not found")
	ErrDishInactive = errors.New("dish is not active")
)

const defaultPrepSeconds = 300

type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) Create(ctx context.Context, name string, priceCents int64, prepSeconds int) (*model.Dish, error) {
	if prepSeconds <= 0 {
		prepSeconds = defaultPrepSeconds
	}

	dish := model.Dish{
		Name:        name,
		PriceCents:  priceCents,
		PrepSeconds: prepSeconds,
		Active:      true,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dishes (name, price_cents, prep_seconds, active) VALUES ($1, $2, $3, TRUE)
		 RETURNING id, created_at`,
		name, priceCents, prepSeconds,
	).Scan(&dish.ID, &dish.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert dish: %w", err)
	}

	return &dish, nil
}

// Lookup returns the dish regardless of its active flag; callers that
// only accept active dishes check Active themselves.
func (s *CatalogService) Lookup(ctx context.Context, id string) (*model.Dish, error) {
	var d model.Dish
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, price_cents, prep_seconds, active, created_at FROM dishes WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Name, &d.PriceCents, &d.PrepSeconds, &d.Active, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDishNotFound
		}
		return nil, fmt.Errorf("get dish: %w", err)
	}
	return &d, nil
}

func (s *CatalogService) ListActive(ctx context.Context) ([]model.Dish, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price_cents, prep_seconds, active, created_at
		 FROM dishes WHERE active ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dishes: %w", err)
	}
	defer rows.Close()

	var dishes []model.Dish
	for rows.Next() {
		var d model.Dish
		if err := rows.Scan(&d.ID, &d.Name, &d.PriceCents, &d.PrepSeconds, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return dishes, nil
}
