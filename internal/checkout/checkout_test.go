package checkout

import (
	"testing"

	"github.com/zuritech/duka-api/internal/models"
)

func cartItems() []models.CartItem {
	return []models.CartItem{
		{Product: models.Product{ID: "p1", Price: 4000}, Quantity: 2, Color: "Black"},
	}
}

func advanceToPayment(t *testing.T, m *Manager, owner string, input models.CheckoutInput) {
	t.Helper()
	m.Start(owner)
	if _, err := m.Next(owner); err != nil {
		t.Fatalf("cart -> checkout: %v", err)
	}
	if _, err := m.SetDelivery(owner, input); err != nil {
		t.Fatalf("set delivery: %v", err)
	}
	if _, err := m.Next(owner); err != nil {
		t.Fatalf("checkout -> payment: %v", err)
	}
}

func TestWizardHappyPath(t *testing.T) {
	m := NewManager()
	advanceToPayment(t, m, "u1", models.CheckoutInput{DeliveryType: models.DeliveryCourier, Town: "Thika"})

	s, err := m.Complete("u1")
	if err != nil {
		t.Fatalf("payment -> success: %v", err)
	}
	if s.Stage != StageSuccess {
		t.Errorf("stage = %v, want success", s.Stage)
	}
}

func TestCompleteDiscardsTheSession(t *testing.T) {
	m := NewManager()
	advanceToPayment(t, m, "u1", models.CheckoutInput{DeliveryType: models.DeliveryPickup})

	if _, err := m.Complete("u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get("u1"); err != ErrNoSession {
		t.Errorf("session after complete: err = %v, want ErrNoSession", err)
	}
	// A fresh wizard can start immediately for the same owner.
	s := m.Start("u1")
	if s.Stage != StageCart {
		t.Errorf("restarted stage = %v, want cart", s.Stage)
	}
}

func TestNextRequiresDeliveryChoice(t *testing.T) {
	m := NewManager()
	m.Start("u1")
	if _, err := m.Next("u1"); err != nil {
		t.Fatalf("cart -> checkout: %v", err)
	}
	if _, err := m.Next("u1"); err != ErrDeliveryRequired {
		t.Errorf("advancing without a delivery choice: err = %v, want ErrDeliveryRequired", err)
	}
}

func TestBackOnlyOneStep(t *testing.T) {
	m := NewManager()
	advanceToPayment(t, m, "u1", models.CheckoutInput{DeliveryType: models.DeliveryPickup})

	s, err := m.Back("u1")
	if err != nil {
		t.Fatalf("payment -> checkout: %v", err)
	}
	if s.Stage != StageCheckout {
		t.Errorf("stage after back = %v, want checkout", s.Stage)
	}
	s, err = m.Back("u1")
	if err != nil {
		t.Fatalf("checkout -> cart: %v", err)
	}
	if s.Stage != StageCart {
		t.Errorf("stage after back = %v, want cart", s.Stage)
	}
	if _, err := m.Back("u1"); err != ErrBadStage {
		t.Errorf("back from cart: err = %v, want ErrBadStage", err)
	}
}

func TestCompleteOnlyAtPayment(t *testing.T) {
	m := NewManager()
	m.Start("u1")
	if _, err := m.Complete("u1"); err != ErrBadStage {
		t.Errorf("complete at cart: err = %v, want ErrBadStage", err)
	}
	if _, err := m.Next("u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Complete("u1"); err != ErrBadStage {
		t.Errorf("complete at checkout: err = %v, want ErrBadStage", err)
	}
}

func TestQuoteReflectsDeliveryChoice(t *testing.T) {
	m := NewManager()
	m.Start("u1")
	m.Next("u1")

	if _, err := m.SetDelivery("u1", models.CheckoutInput{DeliveryType: models.DeliveryCourier, Town: "Thika"}); err != nil {
		t.Fatal(err)
	}
	q, err := m.QuoteFor("u1", cartItems())
	if err != nil {
		t.Fatal(err)
	}
	if q.Subtotal != 8000 {
		t.Errorf("subtotal = %v, want 8000", q.Subtotal)
	}
	if q.DeliveryFee != 2520 { // Thika: 42km * 60
		t.Errorf("delivery fee = %v, want 2520", q.DeliveryFee)
	}
	if q.Total != 10520 {
		t.Errorf("total = %v, want 10520", q.Total)
	}

	// Switching to pickup zeroes the fee before any order exists.
	if _, err := m.SetDelivery("u1", models.CheckoutInput{DeliveryType: models.DeliveryPickup, Town: "Thika"}); err != nil {
		t.Fatal(err)
	}
	q, _ = m.QuoteFor("u1", cartItems())
	if q.DeliveryFee != 0 || q.Total != 8000 {
		t.Errorf("pickup quote = %+v, want fee 0 total 8000", q)
	}
}

func TestQuoteUnavailableAtCartStage(t *testing.T) {
	m := NewManager()
	m.Start("u1")
	if _, err := m.QuoteFor("u1", cartItems()); err != ErrBadStage {
		t.Errorf("quote at cart stage: err = %v, want ErrBadStage", err)
	}
}

func TestSetDeliveryOnlyAtCheckoutStage(t *testing.T) {
	m := NewManager()
	m.Start("u1")
	input := models.CheckoutInput{DeliveryType: models.DeliveryPickup}
	if _, err := m.SetDelivery("u1", input); err != ErrBadStage {
		t.Errorf("set delivery at cart: err = %v, want ErrBadStage", err)
	}
}

func TestNoSession(t *testing.T) {
	m := NewManager()
	if _, err := m.Next("ghost"); err != ErrNoSession {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}
