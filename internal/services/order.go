package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/zuritech/duka-api/internal/audit"
	"github.com/zuritech/duka-api/internal/cart"
	"github.com/zuritech/duka-api/internal/checkout"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/notify"
	"github.com/zuritech/duka-api/internal/pricing"
	"github.com/zuritech/duka-api/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PlacedEvent is what checkout confirmation hands back to the caller: the
// persisted order, the instruction to clear the cart, and the pre-filled
// confirmation hand-off.
type PlacedEvent struct {
	Order        models.Order `json:"order"`
	ClearCart    bool         `json:"clear_cart"`
	WhatsAppLink string       `json:"whatsapp_link"`
}

// OrderService owns the order lifecycle: materializing carts into orders at
// checkout and the two admin-driven status axes afterwards.
type OrderService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	carts    *cart.Store
	sessions *checkout.Manager
	audit    *audit.Recorder
	metrics  *metrics.AppMetrics

	whatsAppPhone string
	tillNumber    string
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository,
	carts *cart.Store, sessions *checkout.Manager, recorder *audit.Recorder,
	m *metrics.AppMetrics, whatsAppPhone, tillNumber string) *OrderService {
	return &OrderService{
		orders:        orders,
		users:         users,
		carts:         carts,
		sessions:      sessions,
		audit:         recorder,
		metrics:       m,
		whatsAppPhone: whatsAppPhone,
		tillNumber:    tillNumber,
	}
}

// PaymentInstructions are shown on the wizard's payment stage.
type PaymentInstructions struct {
	TillNumber string  `json:"till_number"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

// Instructions returns the M-PESA details for the owner's pending checkout.
func (s *OrderService) Instructions(ownerID string) (*PaymentInstructions, error) {
	quote, err := s.sessions.QuoteFor(ownerID, s.carts.Items(ownerID))
	if err != nil {
		return nil, err
	}
	return &PaymentInstructions{
		TillNumber: s.tillNumber,
		Amount:     quote.Total,
		Note:       "Pay the total to the till number, then confirm your order.",
	}, nil
}

// PlaceOrder confirms a checkout at the payment stage. The cart is snapshotted
// into a new order, the wizard completes, and the cart is cleared. The
// resolved town is the signed-in user's saved town unless the session carries
// an explicit one.
func (s *OrderService) PlaceOrder(ctx context.Context, ownerID string) (*PlacedEvent, error) {
	session, err := s.sessions.Get(ownerID)
	if err != nil {
		return nil, err
	}
	if session.Stage != checkout.StagePayment {
		return nil, checkout.ErrBadStage
	}

	items := s.carts.Items(ownerID)
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	town := session.Delivery.Town
	if town == "" && session.Delivery.DeliveryType == models.DeliveryCourier && ownerID != models.GuestUserID {
		if u, err := s.users.GetByID(ctx, ownerID); err == nil {
			town = u.Town
		} else {
			log.Printf("[ORDER] could not resolve saved town for %s: %v", ownerID, err)
		}
	}

	subtotal := pricing.Subtotal(items)
	fee := pricing.DeliveryFee(town, session.Delivery.DeliveryType)

	order := models.Order{
		ID:            uuid.New().String(),
		DisplayCode:   shortCode(),
		SpecialCode:   shortCode(),
		UserID:        ownerID,
		Items:         items,
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         subtotal + fee,
		Status:        models.StatusOrdered,
		PaymentStatus: models.PaymentPendingVerification,
		DeliveryType:  session.Delivery.DeliveryType,
		Town:          town,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, &order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if _, err := s.sessions.Complete(ownerID); err != nil {
		// The order is already persisted; the wizard teardown is cosmetic here.
		log.Printf("[ORDER] could not complete checkout session for %s: %v", ownerID, err)
	}
	s.carts.Clear(ownerID)

	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("delivery_type", string(order.DeliveryType)),
	})
	s.metrics.OrdersPlaced.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.RevenueTotal.Add(ctx, order.Total, metric.WithAttributes(attrs...))

	s.audit.RecordStatusChange(order.ID, "order", "", string(order.Status), ownerID)
	log.Printf("[ORDER] Order placed: id=%s code=%s total=%.2f delivery=%s",
		order.ID, order.DisplayCode, order.Total, order.DeliveryType)

	return &PlacedEvent{
		Order:        order,
		ClearCart:    true,
		WhatsAppLink: notify.WhatsAppLink(s.whatsAppPhone, notify.OrderConfirmation(&order)),
	}, nil
}

// Get returns an order by id.
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.Get(ctx, id)
}

// ListForUser returns the user's order history, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order for the admin dashboard.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// SetFulfillmentStatus sets the fulfillment axis to any member of the enum.
// Out-of-order transitions are allowed on purpose: admins use them to correct
// mistakes.
func (s *OrderService) SetFulfillmentStatus(ctx context.Context, orderID string, status models.OrderStatus, actor string) error {
	if !models.ValidOrderStatuses[status] {
		return fmt.Errorf("invalid status value")
	}

	old := ""
	if existing, err := s.orders.Get(ctx, orderID); err == nil {
		old = string(existing.Status)
	}

	if err := s.orders.SetStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.audit.RecordStatusChange(orderID, "order", old, string(status), actor)
	log.Printf("[ORDER] Status change: id=%s %s -> %s by %s", orderID, old, status, actor)
	return nil
}

// SetPaymentStatus sets the payment axis, independent of fulfillment.
func (s *OrderService) SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, actor string) error {
	if !models.ValidPaymentStatuses[status] {
		return fmt.Errorf("invalid status value")
	}

	old := ""
	if existing, err := s.orders.Get(ctx, orderID); err == nil {
		old = string(existing.PaymentStatus)
	}

	if err := s.orders.SetPaymentStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.audit.RecordStatusChange(orderID, "order_payment", old, string(status), actor)
	log.Printf("[ORDER] Payment status change: id=%s %s -> %s by %s", orderID, old, status, actor)
	return nil
}

// ImportQuote prices a Buy-For-Me request. Returns ok=false when the input is
// incomplete; an incomplete form is not an error.
func (s *OrderService) ImportQuote(ctx context.Context, req models.ImportQuoteRequest) (pricing.ImportQuote, bool) {
	quote, ok := pricing.ComputeImportQuote(req.USDPrice, req.ItemURL)
	if ok {
		s.metrics.ImportQuotes.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	}
	return quote, ok
}

// shortCode generates a 6-digit human-readable reference. Uniqueness is not
// required; identity lives in the UUID row id.
func shortCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}
