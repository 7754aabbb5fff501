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

type listingRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewListingRepository returns the MySQL-backed listing repository.
func NewListingRepository(database *db.DB, m *metrics.AppMetrics) ListingRepository {
	return &listingRepository{db: database, metrics: m}
}

const listingColumns = `id, seller_id, seller_name, device_name, device_condition, duration_used, reason, asking_price, location, phone, images, status, created_at`

func (r *listingRepository) Create(ctx context.Context, l *models.GadgetListing) error {
	images, err := json.Marshal(l.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}
	start := time.Now()
	query := `INSERT INTO gadget_listings (` + listingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, l.ID, l.SellerID, l.SellerName, l.DeviceName, l.Condition,
		l.DurationUsed, l.Reason, l.AskingPrice, l.Location, l.Phone, string(images), l.Status, l.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "INSERT", "gadget_listings", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *listingRepository) Get(ctx context.Context, id string) (*models.GadgetListing, error) {
	start := time.Now()
	query := `SELECT ` + listingColumns + ` FROM gadget_listings WHERE id = ?`
	l, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	r.metrics.RecordDBQuery(ctx, "SELECT", "gadget_listings", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

func (r *listingRepository) ListByStatus(ctx context.Context, status models.ListingStatus) ([]models.GadgetListing, error) {
	return r.list(ctx, "WHERE status = ?", status)
}

func (r *listingRepository) ListAll(ctx context.Context) ([]models.GadgetListing, error) {
	return r.list(ctx, "")
}

func (r *listingRepository) list(ctx context.Context, where string, args ...interface{}) ([]models.GadgetListing, error) {
	start := time.Now()
	query := `SELECT ` + listingColumns + ` FROM gadget_listings ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.metrics.RecordDBQuery(ctx, "SELECT", "gadget_listings", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.GadgetListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (r *listingRepository) SetStatus(ctx context.Context, id string, status models.ListingStatus) error {
	start := time.Now()
	query := "UPDATE gadget_listings SET status = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, status, id)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "gadget_listings", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanListing(row rowScanner) (*models.GadgetListing, error) {
	var l models.GadgetListing
	var images string
	err := row.Scan(&l.ID, &l.SellerID, &l.SellerName, &l.DeviceName, &l.Condition,
		&l.DurationUsed, &l.Reason, &l.AskingPrice, &l.Location, &l.Phone, &images, &l.Status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return &l, nil
}

type offerRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewOfferRepository returns the MySQL-backed offer repository.
func NewOfferRepository(database *db.DB, m *metrics.AppMetrics) OfferRepository {
	return &offerRepository{db: database, metrics: m}
}

func (r *offerRepository) Create(ctx context.Context, o *models.Offer) error {
	start := time.Now()
	query := `INSERT INTO offers (id, gadget_id, gadget_name, buyer_name, buyer_email, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.GadgetID, o.GadgetName, o.BuyerName, o.BuyerEmail,
		o.Amount, o.Status, o.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "INSERT", "offers", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) ListAll(ctx context.Context) ([]models.Offer, error) {
	start := time.Now()
	query := `SELECT id, gadget_id, gadget_name, buyer_name, buyer_email, amount, status, created_at
		FROM offers ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	r.metrics.RecordDBQuery(ctx, "SELECT", "offers", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.ID, &o.GadgetID, &o.GadgetName, &o.BuyerName, &o.BuyerEmail,
			&o.Amount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *offerRepository) SetStatus(ctx context.Context, id string, status models.OfferStatus) error {
	start := time.Now()
	query := "UPDATE offers SET status = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, status, id)
	r.metrics.RecordDBQuery(ctx, "UPDATE", "offers", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update offer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
