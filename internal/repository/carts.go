package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
)

type cartRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartRepository returns the MySQL-backed cart snapshot store. The whole
// cart is stored as one JSON document per owner; carts are small and the
// in-memory store remains the source of truth on read.
func NewCartRepository(database *db.DB, m *metrics.AppMetrics) CartRepository {
	return &cartRepository{db: database, metrics: m}
}

func (r *cartRepository) SaveCart(ctx context.Context, ownerID string, items []models.CartItem) error {
	if len(items) == 0 {
		start := time.Now()
		query := "DELETE FROM cart_snapshots WHERE owner_id = ?"
		_, err := r.db.ExecContext(ctx, query, ownerID)
		r.metrics.RecordDBQuery(ctx, "DELETE", "cart_snapshots", query, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to clear cart snapshot: %w", err)
		}
		return nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	start := time.Now()
	query := `INSERT INTO cart_snapshots (owner_id, items, updated_at) VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE items = VALUES(items), updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query, ownerID, string(payload))
	r.metrics.RecordDBQuery(ctx, "INSERT", "cart_snapshots", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

func (r *cartRepository) LoadCart(ctx context.Context, ownerID string) ([]models.CartItem, error) {
	start := time.Now()
	query := "SELECT items FROM cart_snapshots WHERE owner_id = ?"
	var payload string
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&payload)
	r.metrics.RecordDBQuery(ctx, "SELECT", "cart_snapshots", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	return items, nil
}
