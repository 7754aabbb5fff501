// Package checkout drives the linear wizard a shopper walks through:
// cart -> checkout (choose delivery) -> payment (M-PESA instructions) ->
// success. Back navigation only steps to the immediately preceding stage,
// and the order itself is only placed on confirmation at the payment stage.
package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/pricing"
)

// Stage is a step of the checkout wizard.
type Stage string

const (
	StageCart     Stage = "cart"
	StageCheckout Stage = "checkout"
	StagePayment  Stage = "payment"
	StageSuccess  Stage = "success"
)

// forward is the single legal forward transition per stage.
var forward = map[Stage]Stage{
	StageCart:     StageCheckout,
	StageCheckout: StagePayment,
}

// backward is the single legal backward transition per stage.
var backward = map[Stage]Stage{
	StageCheckout: StageCart,
	StagePayment:  StageCheckout,
}

var (
	ErrNoSession        = errors.New("no checkout session")
	ErrBadStage         = errors.New("action not allowed at this stage")
	ErrDeliveryRequired = errors.New("delivery option required")
)

// Session is one shopper's walk through the wizard.
type Session struct {
	OwnerID   string               `json:"owner_id"`
	Stage     Stage                `json:"stage"`
	Delivery  models.CheckoutInput `json:"delivery"`
	HasChoice bool                 `json:"has_choice"`
	StartedAt time.Time            `json:"started_at"`
}

// Quote is the running total shown from the checkout stage onward.
type Quote struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

// Manager holds the active sessions, one per owner.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start opens a fresh session at the cart stage, replacing any previous one.
func (m *Manager) Start(ownerID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{OwnerID: ownerID, Stage: StageCart, StartedAt: time.Now()}
	m.sessions[ownerID] = s
	return *s
}

// Get returns the owner's session.
func (m *Manager) Get(ownerID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	return *s, nil
}

// SetDelivery records the delivery choice. Only valid on the checkout stage;
// pickup clears any town.
func (m *Manager) SetDelivery(ownerID string, input models.CheckoutInput) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.Stage != StageCheckout {
		return Session{}, ErrBadStage
	}
	if input.DeliveryType != models.DeliveryPickup && input.DeliveryType != models.DeliveryCourier {
		return Session{}, ErrDeliveryRequired
	}
	if input.DeliveryType == models.DeliveryPickup {
		input.Town = ""
	}
	s.Delivery = input
	s.HasChoice = true
	return *s, nil
}

// Next advances one stage. Leaving the checkout stage requires a recorded
// delivery choice. The payment stage only advances through Complete.
func (m *Manager) Next(ownerID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	to, ok := forward[s.Stage]
	if !ok {
		return Session{}, ErrBadStage
	}
	if s.Stage == StageCheckout && !s.HasChoice {
		return Session{}, ErrDeliveryRequired
	}
	s.Stage = to
	return *s, nil
}

// Back steps to the immediately preceding stage.
func (m *Manager) Back(ownerID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	to, ok := backward[s.Stage]
	if !ok {
		return Session{}, ErrBadStage
	}
	s.Stage = to
	return *s, nil
}

// Complete moves payment -> success and discards the session so finished
// wizards do not pile up in the manager. The caller places the order first;
// the returned copy is the terminal state.
func (m *Manager) Complete(ownerID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.Stage != StagePayment {
		return Session{}, ErrBadStage
	}
	s.Stage = StageSuccess
	done := *s
	delete(m.sessions, ownerID)
	return done, nil
}

// End discards the owner's session.
func (m *Manager) End(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, ownerID)
}

// QuoteFor prices the cart against the session's delivery choice. Available
// from the checkout stage onward so the running total always reflects the
// selected option before the order exists.
func (m *Manager) QuoteFor(ownerID string, items []models.CartItem) (Quote, error) {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	if !ok {
		m.mu.Unlock()
		return Quote{}, ErrNoSession
	}
	stage := s.Stage
	delivery := s.Delivery
	m.mu.Unlock()

	if stage == StageCart {
		return Quote{}, ErrBadStage
	}
	sub := pricing.Subtotal(items)
	fee := pricing.DeliveryFee(delivery.Town, delivery.DeliveryType)
	return Quote{Subtotal: sub, DeliveryFee: fee, Total: sub + fee}, nil
}
