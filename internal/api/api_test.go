package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/zuritech/duka-api/internal/audit"
	"github.com/zuritech/duka-api/internal/cart"
	"github.com/zuritech/duka-api/internal/checkout"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/middleware"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/repository"
	"github.com/zuritech/duka-api/internal/services"
	"github.com/zuritech/duka-api/pkg/config"
	"github.com/zuritech/duka-api/pkg/token"
)

// Shared in-memory repositories backing a full router, so tests can walk the
// storefront the way a client would.

type memProducts struct{ byID map[string]*models.Product }

func (m *memProducts) List(_ context.Context, limit, offset int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}
func (m *memProducts) Get(_ context.Context, id string) (*models.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}
func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}
func (m *memProducts) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type memDeals struct{}

func (memDeals) ListActive(context.Context) ([]models.Deal, error) { return nil, nil }
func (memDeals) Create(context.Context, *models.Deal) error        { return nil }
func (memDeals) Update(context.Context, *models.Deal) error        { return nil }

type memOrders struct{ byID map[string]*models.Order }

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}
func (m *memOrders) Get(_ context.Context, id string) (*models.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}
func (m *memOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}
func (m *memOrders) ListAll(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}
func (m *memOrders) SetStatus(_ context.Context, id string, s models.OrderStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = s
	return nil
}
func (m *memOrders) SetPaymentStatus(_ context.Context, id string, s models.PaymentStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.PaymentStatus = s
	return nil
}

type memListings struct{ byID map[string]*models.GadgetListing }

func (m *memListings) Create(_ context.Context, l *models.GadgetListing) error {
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}
func (m *memListings) Get(_ context.Context, id string) (*models.GadgetListing, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}
func (m *memListings) ListByStatus(_ context.Context, s models.ListingStatus) ([]models.GadgetListing, error) {
	var out []models.GadgetListing
	for _, l := range m.byID {
		if l.Status == s {
			out = append(out, *l)
		}
	}
	return out, nil
}
func (m *memListings) ListAll(_ context.Context) ([]models.GadgetListing, error) {
	var out []models.GadgetListing
	for _, l := range m.byID {
		out = append(out, *l)
	}
	return out, nil
}
func (m *memListings) SetStatus(_ context.Context, id string, s models.ListingStatus) error {
	l, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Status = s
	return nil
}

type memOffers struct{ byID map[string]*models.Offer }

func (m *memOffers) Create(_ context.Context, o *models.Offer) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}
func (m *memOffers) ListAll(_ context.Context) ([]models.Offer, error) {
	var out []models.Offer
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}
func (m *memOffers) SetStatus(_ context.Context, id string, s models.OfferStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = s
	return nil
}

type memUsers struct{ byEmail map[string]*models.User }

func (m *memUsers) Upsert(_ context.Context, u *models.User) error {
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}
func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type nullCache struct{}

func (nullCache) Get(context.Context, string) (*models.Product, bool) { return nil, false }
func (nullCache) Set(context.Context, *models.Product)                {}
func (nullCache) Invalidate(context.Context, string)                  {}

type testHarness struct {
	router *mux.Router
	users  *memUsers
	issuer *token.Issuer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	m := metrics.NewNoop()
	recorder := &audit.Recorder{}
	issuer := token.NewIssuer("test-secret", time.Hour)
	auth := middleware.NewAuthenticator(issuer)

	products := &memProducts{byID: map[string]*models.Product{
		"p-phone": {ID: "p-phone", Name: "Pixel 8", Price: 78000, Currency: "KES", Stock: 5},
	}}
	orders := &memOrders{byID: make(map[string]*models.Order)}
	listings := &memListings{byID: make(map[string]*models.GadgetListing)}
	offers := &memOffers{byID: make(map[string]*models.Offer)}
	users := &memUsers{byEmail: make(map[string]*models.User)}

	carts := cart.NewStore(nil)
	sessions := checkout.NewManager()

	catalog := services.NewCatalogService(products, memDeals{}, nullCache{}, m)
	orderSvc := services.NewOrderService(orders, users, carts, sessions, recorder, m, "254700000000", "123456")
	marketSvc := services.NewMarketplaceService(listings, offers, recorder, m, "254700000000", "orders@duka.ke")
	userSvc := services.NewUserService(users, issuer, recorder)

	app := NewApp(&config.Config{}, nil, m, auth, catalog, orderSvc, marketSvc, userSvc,
		carts, nil, sessions, nil)
	// The assistant is optional in this harness; no route below touches it.
	app.recommender = nil
	app.places = nil

	router := mux.NewRouter()
	app.SetupRoutes(router)
	return &testHarness{router: router, users: users, issuer: issuer}
}

func (h *testHarness) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) adminToken(t *testing.T) string {
	t.Helper()
	admin := &models.User{ID: "admin-1", Email: "admin@duka.ke", Role: models.RoleAdmin}
	h.users.Upsert(context.Background(), admin)
	signed, err := h.issuer.Generate(admin)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return signed
}

func TestGuestCheckoutFlow(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, "GET", "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}

	rec := h.do(t, "POST", "/api/v1/cart/add", "", models.AddToCartRequest{ProductID: "p-phone", Quantity: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("cart/add: %d %s", rec.Code, rec.Body.String())
	}

	if rec := h.do(t, "POST", "/api/v1/checkout/start", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("checkout/start: %d", rec.Code)
	}
	if rec := h.do(t, "POST", "/api/v1/checkout/next", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("next to checkout: %d", rec.Code)
	}

	// Advancing without a delivery choice is refused.
	if rec := h.do(t, "POST", "/api/v1/checkout/next", "", nil); rec.Code != http.StatusConflict {
		t.Fatalf("next without delivery: %d, want 409", rec.Code)
	}

	rec = h.do(t, "POST", "/api/v1/checkout/delivery", "", models.CheckoutInput{
		DeliveryType: models.DeliveryCourier, Town: "Westlands",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout/delivery: %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, "GET", "/api/v1/checkout/quote", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout/quote: %d", rec.Code)
	}
	var quote checkout.Quote
	if err := json.Unmarshal(rec.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	// Westlands is 5 km out; the metro floor of 360 applies.
	if quote.Subtotal != 156000 || quote.DeliveryFee != 360 {
		t.Errorf("quote = %+v, want subtotal 156000 fee 360", quote)
	}

	if rec := h.do(t, "POST", "/api/v1/checkout/next", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("next to payment: %d", rec.Code)
	}
	if rec := h.do(t, "GET", "/api/v1/checkout/payment", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("payment instructions: %d", rec.Code)
	}

	rec = h.do(t, "POST", "/api/v1/checkout/confirm", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout/confirm: %d %s", rec.Code, rec.Body.String())
	}
	var event struct {
		Order     models.Order `json:"order"`
		ClearCart bool         `json:"clear_cart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !event.ClearCart || event.Order.Total != 156360 {
		t.Errorf("placed event = %+v", event)
	}

	// The cart emptied with the order.
	rec = h.do(t, "GET", "/api/v1/cart", "", nil)
	var cartResp struct {
		Items    []models.CartItem `json:"items"`
		Subtotal float64           `json:"subtotal"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cartResp); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cartResp.Items) != 0 {
		t.Errorf("cart still has %d items after confirmation", len(cartResp.Items))
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, "GET", "/api/v1/admin/orders", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous admin access: %d, want 401", rec.Code)
	}

	// A regular sign-up does not grant admin access.
	rec := h.do(t, "POST", "/api/v1/auth/signup", "", models.SignUpRequest{
		Email: "shopper@duka.ke", Password: "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	var session models.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if rec := h.do(t, "GET", "/api/v1/admin/orders", session.Token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("user-role admin access: %d, want 403", rec.Code)
	}

	if rec := h.do(t, "GET", "/api/v1/admin/orders", h.adminToken(t), nil); rec.Code != http.StatusOK {
		t.Errorf("admin access: %d, want 200", rec.Code)
	}
}

func TestMarketplaceOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken(t)

	rec := h.do(t, "POST", "/api/v1/market/listings", "", models.SubmitListingRequest{
		SellerName: "Ken", DeviceName: "PS5", Condition: "Good", AskingPrice: 48000, Phone: "254711000000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit listing: %d %s", rec.Code, rec.Body.String())
	}
	var listing models.GadgetListing
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}

	// Hidden from the public feed until approved.
	rec = h.do(t, "GET", "/api/v1/market/listings", "", nil)
	var feed []models.GadgetListing
	json.Unmarshal(rec.Body.Bytes(), &feed)
	if len(feed) != 0 {
		t.Errorf("pending listing visible in feed")
	}

	path := fmt.Sprintf("/api/v1/admin/market/listings/%s/status", listing.ID)
	rec = h.do(t, "PATCH", path, admin, map[string]string{"status": "Approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve listing: %d %s", rec.Code, rec.Body.String())
	}
	var notice services.DecisionNotice
	if err := json.Unmarshal(rec.Body.Bytes(), &notice); err != nil {
		t.Fatalf("decode notice: %v", err)
	}
	if !strings.Contains(notice.WhatsAppLink, "wa.me/254711000000") {
		t.Errorf("seller hand-off missing from approval response: %+v", notice)
	}

	rec = h.do(t, "GET", "/api/v1/market/listings", "", nil)
	json.Unmarshal(rec.Body.Bytes(), &feed)
	if len(feed) != 1 {
		t.Fatalf("approved feed has %d listings", len(feed))
	}

	interestPath := fmt.Sprintf("/api/v1/market/listings/%s/interest", listing.ID)
	rec = h.do(t, "POST", interestPath, "", models.InterestRequest{BuyerName: "Amina"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("express interest: %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, "GET", "/api/v1/market/payout-quote?price=48000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("payout quote: %d", rec.Code)
	}
	var payout map[string]float64
	json.Unmarshal(rec.Body.Bytes(), &payout)
	if payout["market_fee"] != 3360 || payout["payout"] != 44640 {
		t.Errorf("payout quote = %v", payout)
	}
}

func TestTownsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, "GET", "/api/v1/towns", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("towns: %d", rec.Code)
	}
	var towns []string
	if err := json.Unmarshal(rec.Body.Bytes(), &towns); err != nil {
		t.Fatalf("decode towns: %v", err)
	}
	if len(towns) < 20 {
		t.Errorf("towns list has %d entries", len(towns))
	}
}
