package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
)

type dealRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewDealRepository returns the MySQL-backed deal repository.
func NewDealRepository(database *db.DB, m *metrics.AppMetrics) DealRepository {
	return &dealRepository{db: database, metrics: m}
}

// ListActive filters on the manual active flag only. Expiry is display
// information, never a filter.
func (r *dealRepository) ListActive(ctx context.Context) ([]models.Deal, error) {
	start := time.Now()
	query := `SELECT id, product_id, deal_price, expires_at, active, created_at
		FROM deals WHERE active = TRUE ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	r.metrics.RecordDBQuery(ctx, "SELECT", "deals", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		if err := rows.Scan(&d.ID, &d.ProductID, &d.DealPrice, &d.ExpiresAt, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (r *dealRepository) Create(ctx context.Context, d *models.Deal) error {
	start := time.Now()
	query := `INSERT INTO deals (id, product_id, deal_price, expires_at, active) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.ProductID, d.DealPrice, d.ExpiresAt, d.Active)
	r.metrics.RecordDBQuery(ctx, "INSERT", "deals", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (r *dealRepository) Update(ctx context.Context, d *models.Deal) error {
	start := time.Now()
	query := `UPDATE deals SET deal_price = ?, expires_at = ?, active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, d.DealPrice, d.ExpiresAt, d.Active, d.ID)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "deals", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
