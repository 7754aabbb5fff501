package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
)

type orderRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewOrderRepository returns the MySQL-backed order repository.
func NewOrderRepository(database *db.DB, m *metrics.AppMetrics) OrderRepository {
	return &orderRepository{db: database, metrics: m}
}

// Create writes the order and its item snapshot in one transaction. Item rows
// carry copied name/price values so later catalog edits never rewrite order
// history.
func (r *orderRepository) Create(ctx context.Context, o *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	orderQuery := `INSERT INTO orders
		(id, display_code, special_code, user_id, subtotal, delivery_fee, total, status, payment_status, delivery_type, town, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, orderQuery, o.ID, o.DisplayCode, o.SpecialCode, o.UserID,
		o.Subtotal, o.DeliveryFee, o.Total, o.Status, o.PaymentStatus, o.DeliveryType, o.Town, o.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "INSERT", "orders", orderQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items
		(id, order_id, product_id, product_name, unit_price, quantity, color, variation_id, variation_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, it := range o.Items {
		var variationValue string
		if it.Variation != nil {
			variationValue = it.Variation.Value
		}
		start = time.Now()
		_, err = tx.ExecContext(ctx, itemQuery, uuid.New().String(), o.ID, it.Product.ID,
			it.Product.Name, it.UnitPrice(), it.Quantity, it.Color, it.VariationID, variationValue)
		r.metrics.RecordDBQuery(ctx, "INSERT", "order_items", itemQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	start := time.Now()
	query := `SELECT id, display_code, special_code, user_id, subtotal, delivery_fee, total, status, payment_status, delivery_type, town, created_at
		FROM orders WHERE id = ?`
	var o models.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.DisplayCode, &o.SpecialCode, &o.UserID,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status, &o.PaymentStatus, &o.DeliveryType, &o.Town, &o.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.list(ctx, "WHERE user_id = ?", userID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, "")
}

func (r *orderRepository) list(ctx context.Context, where string, args ...interface{}) ([]models.Order, error) {
	start := time.Now()
	query := `SELECT id, display_code, special_code, user_id, subtotal, delivery_fee, total, status, payment_status, delivery_type, town, created_at
		FROM orders ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.DisplayCode, &o.SpecialCode, &o.UserID,
			&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status, &o.PaymentStatus, &o.DeliveryType, &o.Town, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.items(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *orderRepository) items(ctx context.Context, orderID string) ([]models.CartItem, error) {
	start := time.Now()
	query := `SELECT product_id, product_name, unit_price, quantity, color, variation_id, variation_value
		FROM order_items WHERE order_id = ?`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	r.metrics.RecordDBQuery(ctx, "SELECT", "order_items", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var it models.CartItem
		var variationValue string
		if err := rows.Scan(&it.Product.ID, &it.Product.Name, &it.Product.Price,
			&it.Quantity, &it.Color, &it.VariationID, &variationValue); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if it.VariationID != "" {
			it.Variation = &models.ProductVariation{ID: it.VariationID, ProductID: it.Product.ID, Value: variationValue}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	start := time.Now()
	query := "UPDATE orders SET status = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, status, id)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "orders", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	start := time.Now()
	query := "UPDATE orders SET payment_status = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, status, id)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "orders", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
