package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zuritech/duka-api/internal/cache"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CatalogService handles products, variations, and hot deals.
type CatalogService struct {
	products repository.ProductRepository
	deals    repository.DealRepository
	cache    cache.ProductCache
	metrics  *metrics.AppMetrics
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, deals repository.DealRepository,
	productCache cache.ProductCache, m *metrics.AppMetrics) *CatalogService {
	return &CatalogService{
		products: products,
		deals:    deals,
		cache:    productCache,
		metrics:  m,
	}
}

// ListProducts returns a paginated slice of the catalog.
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	return s.products.List(ctx, limit, offset)
}

// GetProduct returns a product by id, serving from cache when possible, and
// records the view.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		s.metrics.CacheHits.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))
		s.recordView(ctx, p)
		return p, nil
	}
	s.metrics.CacheMisses.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))

	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p)
	s.recordView(ctx, p)
	return p, nil
}

func (s *CatalogService) recordView(ctx context.Context, p *models.Product) {
	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("product_id", p.ID),
		attribute.String("product_category", p.Category),
	})
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// CreateProduct validates and stores a new catalog entry.
func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.Name == "" {
		return fmt.Errorf("product name required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must not be negative")
	}
	if p.Stock < 0 {
		return fmt.Errorf("product stock must not be negative")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = "KES"
	}
	for i := range p.Variations {
		if p.Variations[i].ID == "" {
			p.Variations[i].ID = uuid.New().String()
		}
		p.Variations[i].ProductID = p.ID
	}
	return s.products.Create(ctx, p)
}

// UpdateProduct stores changes and drops the cached copy.
func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if p.Price < 0 {
		return fmt.Errorf("product price must not be negative")
	}
	if p.Stock < 0 {
		return fmt.Errorf("product stock must not be negative")
	}
	for i := range p.Variations {
		if p.Variations[i].ID == "" {
			p.Variations[i].ID = uuid.New().String()
		}
		p.Variations[i].ProductID = p.ID
	}
	if err := s.products.Update(ctx, p); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, p.ID)
	return nil
}

// DeleteProduct removes a catalog entry and its cached copy.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// ListDeals returns active hot deals. The active flag is manual; expiry is
// display-only.
func (s *CatalogService) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return s.deals.ListActive(ctx)
}

// CreateDeal stores a new hot deal.
func (s *CatalogService) CreateDeal(ctx context.Context, d *models.Deal) error {
	if d.ProductID == "" {
		return fmt.Errorf("deal product required")
	}
	if d.DealPrice < 0 {
		return fmt.Errorf("deal price must not be negative")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.ExpiresAt.IsZero() {
		d.ExpiresAt = time.Now().Add(7 * 24 * time.Hour)
	}
	return s.deals.Create(ctx, d)
}

// UpdateDeal stores deal changes, including toggling the active flag.
func (s *CatalogService) UpdateDeal(ctx context.Context, d *models.Deal) error {
	return s.deals.Update(ctx, d)
}
