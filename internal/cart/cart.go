// Package cart keeps each shopper's cart in memory. Mutations apply locally
// first and are persisted in the background; a failed save keeps the local
// cart as the source of truth.
package cart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zuritech/duka-api/internal/models"
)

// Key identifies a cart line. Two adds with the same key merge quantities.
type Key struct {
	ProductID   string
	Color       string
	VariationID string
}

// Persister saves a cart snapshot for an owner. Implementations are called in
// the background; errors are logged and otherwise ignored.
type Persister interface {
	SaveCart(ctx context.Context, ownerID string, items []models.CartItem) error
}

// Store holds the carts of all active shoppers, keyed by owner id (a user id
// or the guest sentinel).
type Store struct {
	mu        sync.RWMutex
	carts     map[string][]models.CartItem
	persister Persister
}

// NewStore creates an empty cart store. persister may be nil.
func NewStore(persister Persister) *Store {
	return &Store{
		carts:     make(map[string][]models.CartItem),
		persister: persister,
	}
}

func itemKey(it models.CartItem) Key {
	return Key{ProductID: it.Product.ID, Color: it.Color, VariationID: it.VariationID}
}

// Add puts an item in the owner's cart, merging quantities on
// (product, color, variation). Quantity is clamped to at least 1.
func (s *Store) Add(ownerID string, item models.CartItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.mu.Lock()
	items := s.carts[ownerID]
	merged := false
	for i := range items {
		if itemKey(items[i]) == itemKey(item) {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	s.carts[ownerID] = items
	snapshot := copyItems(items)
	s.mu.Unlock()

	s.persist(ownerID, snapshot)
}

// SetQuantity updates the quantity of the keyed line, clamped to >= 1. A
// missing line is a no-op.
func (s *Store) SetQuantity(ownerID string, key Key, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	items := s.carts[ownerID]
	for i := range items {
		if itemKey(items[i]) == key {
			items[i].Quantity = quantity
			break
		}
	}
	snapshot := copyItems(items)
	s.mu.Unlock()

	s.persist(ownerID, snapshot)
}

// Remove deletes exactly the keyed line, leaving other lines untouched.
func (s *Store) Remove(ownerID string, key Key) {
	s.mu.Lock()
	items := s.carts[ownerID]
	for i := range items {
		if itemKey(items[i]) == key {
			items = append(items[:i], items[i+1:]...)
			break
		}
	}
	s.carts[ownerID] = items
	snapshot := copyItems(items)
	s.mu.Unlock()

	s.persist(ownerID, snapshot)
}

// ActiveCount returns the number of owners with a non-empty cart.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, items := range s.carts {
		if len(items) > 0 {
			n++
		}
	}
	return n
}

// Items returns a copy of the owner's cart.
func (s *Store) Items(ownerID string) []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyItems(s.carts[ownerID])
}

// Hydrate seeds the owner's cart from a persisted snapshot. An existing
// in-memory cart wins; hydration never overwrites live state.
func (s *Store) Hydrate(ownerID string, items []models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[ownerID]; ok {
		return
	}
	if len(items) > 0 {
		s.carts[ownerID] = copyItems(items)
	}
}

// Clear empties the owner's cart.
func (s *Store) Clear(ownerID string) {
	s.mu.Lock()
	delete(s.carts, ownerID)
	s.mu.Unlock()

	s.persist(ownerID, nil)
}

func (s *Store) persist(ownerID string, snapshot []models.CartItem) {
	if s.persister == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.persister.SaveCart(ctx, ownerID, snapshot); err != nil {
			log.Printf("[CART] background save failed for owner %s: %v", ownerID, err)
		}
	}()
}

func copyItems(items []models.CartItem) []models.CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}
