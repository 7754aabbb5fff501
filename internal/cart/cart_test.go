package cart

import (
	"testing"

	"github.com/zuritech/duka-api/internal/models"
)

func item(productID, color, variationID string, qty int) models.CartItem {
	return models.CartItem{
		Product:     models.Product{ID: productID, Price: 1000},
		Quantity:    qty,
		Color:       color,
		VariationID: variationID,
	}
}

func TestAddMergesSameKey(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 2))
	s.Add("u1", item("p1", "Black", "", 3))

	items := s.Items("u1")
	if len(items) != 1 {
		t.Fatalf("got %d lines, want 1 merged line", len(items))
	}
	if items[0].Quantity != 5 {
		t.Errorf("merged quantity = %d, want 5", items[0].Quantity)
	}
}

func TestAddDistinctKeysAreSeparateLines(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 1))
	s.Add("u1", item("p1", "Blue", "", 1))
	s.Add("u1", item("p1", "Black", "v1", 1))

	if got := len(s.Items("u1")); got != 3 {
		t.Errorf("got %d lines, want 3", got)
	}
}

func TestRemoveDeletesExactlyOneLine(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 1))
	s.Add("u1", item("p1", "Blue", "", 1))
	s.Add("u1", item("p2", "Black", "", 1))

	s.Remove("u1", Key{ProductID: "p1", Color: "Blue"})

	items := s.Items("u1")
	if len(items) != 2 {
		t.Fatalf("got %d lines, want 2", len(items))
	}
	for _, it := range items {
		if it.Product.ID == "p1" && it.Color == "Blue" {
			t.Error("removed line still present")
		}
	}
}

func TestSetQuantityClampsToOne(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 4))
	s.SetQuantity("u1", Key{ProductID: "p1", Color: "Black"}, 0)

	if got := s.Items("u1")[0].Quantity; got != 1 {
		t.Errorf("quantity = %d, want clamp to 1", got)
	}

	s.SetQuantity("u1", Key{ProductID: "p1", Color: "Black"}, -3)
	if got := s.Items("u1")[0].Quantity; got != 1 {
		t.Errorf("quantity = %d, want clamp to 1", got)
	}
}

func TestAddClampsQuantity(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 0))
	if got := s.Items("u1")[0].Quantity; got != 1 {
		t.Errorf("quantity = %d, want clamp to 1", got)
	}
}

func TestClearEmptiesCart(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 1))
	s.Add("u2", item("p2", "Blue", "", 1))

	s.Clear("u1")

	if got := len(s.Items("u1")); got != 0 {
		t.Errorf("cleared cart has %d lines", got)
	}
	if got := len(s.Items("u2")); got != 1 {
		t.Errorf("other owner's cart has %d lines, want 1", got)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	s.Add("u1", item("p1", "Black", "", 1))

	items := s.Items("u1")
	items[0].Quantity = 99

	if got := s.Items("u1")[0].Quantity; got != 1 {
		t.Errorf("store mutated through returned slice: quantity = %d", got)
	}
}

func TestHydrateNeverOverwritesLiveCart(t *testing.T) {
	s := NewStore(nil)
	saved := []models.CartItem{item("p1", "Black", "", 2)}

	s.Hydrate("u1", saved)
	if got := len(s.Items("u1")); got != 1 {
		t.Fatalf("hydrated cart has %d lines, want 1", got)
	}

	s.Add("u1", item("p2", "Blue", "", 1))
	s.Hydrate("u1", []models.CartItem{item("p3", "Red", "", 5)})

	items := s.Items("u1")
	if len(items) != 2 {
		t.Errorf("hydrate replaced a live cart: %d lines", len(items))
	}
	for _, it := range items {
		if it.Product.ID == "p3" {
			t.Error("hydrate injected a line into a live cart")
		}
	}
}
