// Package repository is the persistence collaborator: narrow CRUD contracts
// per entity collection, implemented over MySQL. Services depend on the
// interfaces, never on the database handle.
package repository

import (
	"context"
	"errors"

	"github.com/zuritech/duka-api/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ProductRepository manages the catalog.
type ProductRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

// DealRepository manages hot deals.
type DealRepository interface {
	ListActive(ctx context.Context) ([]models.Deal, error)
	Create(ctx context.Context, d *models.Deal) error
	Update(ctx context.Context, d *models.Deal) error
}

// OrderRepository manages orders and their item snapshots.
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	SetStatus(ctx context.Context, id string, status models.OrderStatus) error
	SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// ListingRepository manages marketplace gadget listings.
type ListingRepository interface {
	Create(ctx context.Context, l *models.GadgetListing) error
	Get(ctx context.Context, id string) (*models.GadgetListing, error)
	ListByStatus(ctx context.Context, status models.ListingStatus) ([]models.GadgetListing, error)
	ListAll(ctx context.Context) ([]models.GadgetListing, error)
	SetStatus(ctx context.Context, id string, status models.ListingStatus) error
}

// OfferRepository manages buyer offers.
type OfferRepository interface {
	Create(ctx context.Context, o *models.Offer) error
	ListAll(ctx context.Context) ([]models.Offer, error)
	SetStatus(ctx context.Context, id string, status models.OfferStatus) error
}

// UserRepository manages accounts. Upsert keys on lowercased email.
type UserRepository interface {
	Upsert(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// CartRepository persists cart snapshots for recovery across sessions. It
// doubles as the cart store's background persister.
type CartRepository interface {
	SaveCart(ctx context.Context, ownerID string, items []models.CartItem) error
	LoadCart(ctx context.Context, ownerID string) ([]models.CartItem, error)
}
