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

type productRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewProductRepository returns the MySQL-backed product repository.
func NewProductRepository(database *db.DB, m *metrics.AppMetrics) ProductRepository {
	return &productRepository{db: database, metrics: m}
}

// Images and colors are stored as JSON text columns; variations live in their
// own table owned by the product row.

func (r *productRepository) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := `SELECT id, name, description, price, currency, images, colors, stock, category, sales_count, created_at, updated_at
		FROM products ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	r.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		variations, err := r.variations(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variations = variations
	}
	return products, nil
}

func (r *productRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	start := time.Now()
	query := `SELECT id, name, description, price, currency, images, colors, stock, category, sales_count, created_at, updated_at
		FROM products WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row)
	r.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	variations, err := r.variations(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Variations = variations
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	images, colors, err := encodeLists(p)
	if err != nil {
		return err
	}

	start := time.Now()
	query := `INSERT INTO products (id, name, description, price, currency, images, colors, stock, category, sales_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Currency,
		images, colors, p.Stock, p.Category, p.SalesCount)
	r.metrics.RecordDBQuery(ctx, "INSERT", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return r.replaceVariations(ctx, p.ID, p.Variations)
}

func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	images, colors, err := encodeLists(p)
	if err != nil {
		return err
	}

	start := time.Now()
	query := `UPDATE products SET name = ?, description = ?, price = ?, currency = ?, images = ?, colors = ?,
		stock = ?, category = ?, sales_count = ?, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.Price, p.Currency,
		images, colors, p.Stock, p.Category, p.SalesCount, p.ID)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.replaceVariations(ctx, p.ID, p.Variations)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	query := "DELETE FROM products WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, id)
	r.metrics.RecordDBQuery(ctx, "DELETE", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) variations(ctx context.Context, productID string) ([]models.ProductVariation, error) {
	start := time.Now()
	query := `SELECT id, product_id, type, value, price, image, stock FROM product_variations WHERE product_id = ?`
	rows, err := r.db.QueryContext(ctx, query, productID)
	r.metrics.RecordDBQuery(ctx, "SELECT", "product_variations", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query variations: %w", err)
	}
	defer rows.Close()

	var out []models.ProductVariation
	for rows.Next() {
		var v models.ProductVariation
		var price sql.NullFloat64
		var image sql.NullString
		var stock sql.NullInt64
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Type, &v.Value, &price, &image, &stock); err != nil {
			return nil, fmt.Errorf("failed to scan variation: %w", err)
		}
		if price.Valid {
			p := price.Float64
			v.Price = &p
		}
		if image.Valid {
			img := image.String
			v.Image = &img
		}
		if stock.Valid {
			s := int(stock.Int64)
			v.Stock = &s
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *productRepository) replaceVariations(ctx context.Context, productID string, variations []models.ProductVariation) error {
	start := time.Now()
	del := "DELETE FROM product_variations WHERE product_id = ?"
	_, err := r.db.ExecContext(ctx, del, productID)
	r.metrics.RecordDBQuery(ctx, "DELETE", "product_variations", del, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear variations: %w", err)
	}

	ins := `INSERT INTO product_variations (id, product_id, type, value, price, image, stock) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, v := range variations {
		start = time.Now()
		_, err := r.db.ExecContext(ctx, ins, v.ID, productID, v.Type, v.Value, v.Price, v.Image, v.Stock)
		r.metrics.RecordDBQuery(ctx, "INSERT", "product_variations", ins, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to insert variation: %w", err)
		}
	}
	return nil
}

func encodeLists(p *models.Product) (images, colors string, err error) {
	imgBytes, err := json.Marshal(p.Images)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode images: %w", err)
	}
	colBytes, err := json.Marshal(p.Colors)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode colors: %w", err)
	}
	return string(imgBytes), string(colBytes), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var images, colors string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&images, &colors, &p.Stock, &p.Category, &p.SalesCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	if err := json.Unmarshal([]byte(colors), &p.Colors); err != nil {
		return nil, fmt.Errorf("failed to decode colors: %w", err)
	}
	return &p, nil
}
