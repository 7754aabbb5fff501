package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/zuritech/duka-api/internal/assist"
	"github.com/zuritech/duka-api/internal/cart"
	"github.com/zuritech/duka-api/internal/checkout"
	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/middleware"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/pricing"
	"github.com/zuritech/duka-api/internal/repository"
	"github.com/zuritech/duka-api/internal/services"
	"github.com/zuritech/duka-api/pkg/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// App holds application dependencies
type App struct {
	config      *config.Config
	db          *db.DB
	metrics     *metrics.AppMetrics
	auth        *middleware.Authenticator
	catalog     *services.CatalogService
	orders      *services.OrderService
	marketplace *services.MarketplaceService
	users       *services.UserService
	carts       *cart.Store
	cartRepo    repository.CartRepository
	sessions    *checkout.Manager
	recommender assist.Recommender
	places      assist.PlaceSuggester

	dialogMu sync.Mutex
	dialogs  map[string]*assist.Dialog
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	database *db.DB,
	m *metrics.AppMetrics,
	auth *middleware.Authenticator,
	catalog *services.CatalogService,
	orders *services.OrderService,
	marketplace *services.MarketplaceService,
	users *services.UserService,
	carts *cart.Store,
	cartRepo repository.CartRepository,
	sessions *checkout.Manager,
	assistClient *assist.Client,
) *App {
	return &App{
		config:      cfg,
		db:          database,
		metrics:     m,
		auth:        auth,
		catalog:     catalog,
		orders:      orders,
		marketplace: marketplace,
		users:       users,
		carts:       carts,
		cartRepo:    cartRepo,
		sessions:    sessions,
		recommender: assistClient,
		places:      assistClient,
		dialogs:     make(map[string]*assist.Dialog),
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// API Routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(a.auth.Optional)

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/deals", a.ListDealsHandler).Methods("GET")
	api.HandleFunc("/towns", a.ListTownsHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart/add", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/update", a.UpdateCartHandler).Methods("POST")
	api.HandleFunc("/cart/remove", a.RemoveFromCartHandler).Methods("POST")

	// Checkout wizard
	api.HandleFunc("/checkout/start", a.StartCheckoutHandler).Methods("POST")
	api.HandleFunc("/checkout/delivery", a.SetDeliveryHandler).Methods("POST")
	api.HandleFunc("/checkout/next", a.CheckoutNextHandler).Methods("POST")
	api.HandleFunc("/checkout/back", a.CheckoutBackHandler).Methods("POST")
	api.HandleFunc("/checkout/quote", a.CheckoutQuoteHandler).Methods("GET")
	api.HandleFunc("/checkout/payment", a.PaymentInstructionsHandler).Methods("GET")
	api.HandleFunc("/checkout/confirm", a.ConfirmOrderHandler).Methods("POST")

	// Buy-For-Me import quotes
	api.HandleFunc("/import/quote", a.ImportQuoteHandler).Methods("POST")

	// Orders
	api.Handle("/orders", a.auth.Required(http.HandlerFunc(a.ListOrdersHandler))).Methods("GET")
	api.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")

	// Marketplace
	api.HandleFunc("/market/listings", a.MarketFeedHandler).Methods("GET")
	api.HandleFunc("/market/listings", a.SubmitListingHandler).Methods("POST")
	api.HandleFunc("/market/listings/{id}/interest", a.ExpressInterestHandler).Methods("POST")
	api.HandleFunc("/market/payout-quote", a.PayoutQuoteHandler).Methods("GET")

	// Auth
	api.HandleFunc("/auth/signup", a.SignUpHandler).Methods("POST")
	api.HandleFunc("/auth/signin", a.SignInHandler).Methods("POST")
	api.HandleFunc("/auth/signout", a.SignOutHandler).Methods("POST")

	// Shopping assistant
	api.HandleFunc("/assist/recommend", a.RecommendHandler).Methods("POST")
	api.HandleFunc("/assist/places", a.SuggestPlacesHandler).Methods("GET")
	api.HandleFunc("/assist/dialog", a.DialogHandler).Methods("POST")

	// Admin back-office
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.auth.AdminOnly)
	admin.HandleFunc("/products", a.CreateProductHandler).Methods("POST")
	admin.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	admin.HandleFunc("/products/{id}", a.DeleteProductHandler).Methods("DELETE")
	admin.HandleFunc("/deals", a.CreateDealHandler).Methods("POST")
	admin.HandleFunc("/deals/{id}", a.UpdateDealHandler).Methods("PUT")
	admin.HandleFunc("/orders", a.AdminListOrdersHandler).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PATCH")
	admin.HandleFunc("/orders/{id}/payment", a.UpdatePaymentStatusHandler).Methods("PATCH")
	admin.HandleFunc("/market/listings", a.AdminListListingsHandler).Methods("GET")
	admin.HandleFunc("/market/listings/{id}/status", a.UpdateListingStatusHandler).Methods("PATCH")
	admin.HandleFunc("/market/offers", a.ListOffersHandler).Methods("GET")
	admin.HandleFunc("/market/offers/{id}/status", a.UpdateOfferStatusHandler).Methods("PATCH")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// recordCartGauges samples the cart gauges after a mutation.
func (a *App) recordCartGauges(r *http.Request, owner string) {
	ctx := r.Context()
	items := a.carts.Items(owner)
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	a.metrics.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(a.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("owner_id", owner),
	})...))
	a.metrics.ActiveCartsCount.Record(ctx, int64(a.carts.ActiveCount()), metric.WithAttributes(a.metrics.WithServiceName(nil)...))
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrNoSession),
		errors.Is(err, checkout.ErrBadStage),
		errors.Is(err, checkout.ErrDeliveryRequired):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}

	products, err := a.catalog.ListProducts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProductHandler handles POST /api/v1/admin/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := a.catalog.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProductHandler handles PUT /api/v1/admin/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p.ID = mux.Vars(r)["id"]
	if err := a.catalog.UpdateProduct(r.Context(), &p); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProductHandler handles DELETE /api/v1/admin/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.catalog.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListDealsHandler handles GET /api/v1/deals
func (a *App) ListDealsHandler(w http.ResponseWriter, r *http.Request) {
	deals, err := a.catalog.ListDeals(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

// CreateDealHandler handles POST /api/v1/admin/deals
func (a *App) CreateDealHandler(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := a.catalog.CreateDeal(r.Context(), &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDealHandler handles PUT /api/v1/admin/deals/{id}
func (a *App) UpdateDealHandler(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d.ID = mux.Vars(r)["id"]
	if err := a.catalog.UpdateDeal(r.Context(), &d); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListTownsHandler handles GET /api/v1/towns
func (a *App) ListTownsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pricing.Towns())
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())

	// Signed-in shoppers recover their last persisted cart.
	if owner != models.GuestUserID && len(a.carts.Items(owner)) == 0 && a.cartRepo != nil {
		if saved, err := a.cartRepo.LoadCart(r.Context(), owner); err == nil {
			a.carts.Hydrate(owner, saved)
		}
	}

	items := a.carts.Items(owner)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"subtotal": pricing.Subtotal(items),
	})
}

// AddToCartHandler handles POST /api/v1/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := a.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	item := models.CartItem{
		Product:     *product,
		Quantity:    req.Quantity,
		Color:       req.Color,
		VariationID: req.VariationID,
	}
	if req.VariationID != "" {
		for i := range product.Variations {
			if product.Variations[i].ID == req.VariationID {
				v := product.Variations[i]
				item.Variation = &v
				break
			}
		}
		if item.Variation == nil {
			writeError(w, http.StatusBadRequest, "unknown variation")
			return
		}
	}

	owner := middleware.OwnerID(r.Context())
	a.carts.Add(owner, item)
	a.recordCartGauges(r, owner)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "added",
		"items":  a.carts.Items(owner),
	})
}

// UpdateCartHandler handles POST /api/v1/cart/update
func (a *App) UpdateCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CartKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner := middleware.OwnerID(r.Context())
	a.carts.SetQuantity(owner, cart.Key{ProductID: req.ProductID, Color: req.Color, VariationID: req.VariationID}, req.Quantity)
	a.recordCartGauges(r, owner)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "updated",
		"items":  a.carts.Items(owner),
	})
}

// RemoveFromCartHandler handles POST /api/v1/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CartKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner := middleware.OwnerID(r.Context())
	a.carts.Remove(owner, cart.Key{ProductID: req.ProductID, Color: req.Color, VariationID: req.VariationID})
	a.recordCartGauges(r, owner)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "removed",
		"items":  a.carts.Items(owner),
	})
}

// StartCheckoutHandler handles POST /api/v1/checkout/start
func (a *App) StartCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())
	if len(a.carts.Items(owner)) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	writeJSON(w, http.StatusOK, a.sessions.Start(owner))
}

// SetDeliveryHandler handles POST /api/v1/checkout/delivery
func (a *App) SetDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	var input models.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := a.sessions.SetDelivery(middleware.OwnerID(r.Context()), input)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CheckoutNextHandler handles POST /api/v1/checkout/next
func (a *App) CheckoutNextHandler(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Next(middleware.OwnerID(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CheckoutBackHandler handles POST /api/v1/checkout/back
func (a *App) CheckoutBackHandler(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Back(middleware.OwnerID(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CheckoutQuoteHandler handles GET /api/v1/checkout/quote
func (a *App) CheckoutQuoteHandler(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())
	quote, err := a.sessions.QuoteFor(owner, a.carts.Items(owner))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// PaymentInstructionsHandler handles GET /api/v1/checkout/payment
func (a *App) PaymentInstructionsHandler(w http.ResponseWriter, r *http.Request) {
	instructions, err := a.orders.Instructions(middleware.OwnerID(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, instructions)
}

// ConfirmOrderHandler handles POST /api/v1/checkout/confirm
func (a *App) ConfirmOrderHandler(w http.ResponseWriter, r *http.Request) {
	event, err := a.orders.PlaceOrder(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		if err.Error() == "cart is empty" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ImportQuoteHandler handles POST /api/v1/import/quote
func (a *App) ImportQuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ImportQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, ok := a.orders.ImportQuote(r.Context(), req)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"available": true, "quote": quote})
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListForUser(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrderHandler handles GET /api/v1/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := a.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Owners and admins only. Guest orders stay readable by the id itself.
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if order.UserID != models.GuestUserID {
		if claims == nil || (claims.UserID != order.UserID && claims.Role != models.RoleAdmin) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminListOrdersHandler handles GET /api/v1/admin/orders
func (a *App) AdminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatusHandler handles PATCH /api/v1/admin/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	err := a.orders.SetFulfillmentStatus(r.Context(), mux.Vars(r)["id"], models.OrderStatus(req.Status), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// UpdatePaymentStatusHandler handles PATCH /api/v1/admin/orders/{id}/payment
func (a *App) UpdatePaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	err := a.orders.SetPaymentStatus(r.Context(), mux.Vars(r)["id"], models.PaymentStatus(req.Status), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// MarketFeedHandler handles GET /api/v1/market/listings
func (a *App) MarketFeedHandler(w http.ResponseWriter, r *http.Request) {
	feed, err := a.marketplace.ApprovedFeed(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// SubmitListingHandler handles POST /api/v1/market/listings
func (a *App) SubmitListingHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	listing, err := a.marketplace.SubmitListing(r.Context(), middleware.OwnerID(r.Context()), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// ExpressInterestHandler handles POST /api/v1/market/listings/{id}/interest
func (a *App) ExpressInterestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.InterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := a.marketplace.ExpressInterest(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// PayoutQuoteHandler handles GET /api/v1/market/payout-quote
func (a *App) PayoutQuoteHandler(w http.ResponseWriter, r *http.Request) {
	price, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64)
	if err != nil || price <= 0 {
		writeError(w, http.StatusBadRequest, "price query parameter required")
		return
	}

	fee, payout := a.marketplace.PayoutQuote(price)
	writeJSON(w, http.StatusOK, map[string]float64{
		"asking_price": price,
		"market_fee":   fee,
		"payout":       payout,
	})
}

// AdminListListingsHandler handles GET /api/v1/admin/market/listings
func (a *App) AdminListListingsHandler(w http.ResponseWriter, r *http.Request) {
	listings, err := a.marketplace.ListAllListings(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// UpdateListingStatusHandler handles PATCH /api/v1/admin/market/listings/{id}/status
func (a *App) UpdateListingStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	notice, err := a.marketplace.SetListingStatus(r.Context(), mux.Vars(r)["id"], models.ListingStatus(req.Status), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

// ListOffersHandler handles GET /api/v1/admin/market/offers
func (a *App) ListOffersHandler(w http.ResponseWriter, r *http.Request) {
	offers, err := a.marketplace.ListOffers(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

// UpdateOfferStatusHandler handles PATCH /api/v1/admin/market/offers/{id}/status
func (a *App) UpdateOfferStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	err := a.marketplace.SetOfferStatus(r.Context(), mux.Vars(r)["id"], models.OfferStatus(req.Status), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SignUpHandler handles POST /api/v1/auth/signup
func (a *App) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := a.users.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SignInHandler handles POST /api/v1/auth/signin
func (a *App) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := a.users.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignOutHandler handles POST /api/v1/auth/signout. Tokens are stateless, so
// sign-out is an acknowledgment; clients drop the token.
func (a *App) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	a.sessions.End(middleware.OwnerID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// RecommendHandler handles POST /api/v1/assist/recommend
func (a *App) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	candidates, err := a.catalog.ListProducts(r.Context(), 100, 0)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	ids := assist.RecommendOrFallback(r.Context(), a.recommender, req.Preferences, candidates)
	picks := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		for i := range candidates {
			if candidates[i].ID == id {
				picks = append(picks, candidates[i])
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, picks)
}

// SuggestPlacesHandler handles GET /api/v1/assist/places
func (a *App) SuggestPlacesHandler(w http.ResponseWriter, r *http.Request) {
	suggestions, err := a.places.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("[ASSIST] place suggestion failed: %v", err)
		suggestions = nil
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// DialogHandler handles POST /api/v1/assist/dialog. Each owner walks a fixed
// question script; answers accumulate into preferences that feed the
// recommender when the script completes.
func (a *App) DialogHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
		Reset  bool   `json:"reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner := middleware.OwnerID(r.Context())

	a.dialogMu.Lock()
	d, ok := a.dialogs[owner]
	if !ok || req.Reset {
		d = assist.NewDialog()
		a.dialogs[owner] = d
	} else {
		d.Advance(req.Answer)
	}
	state := d.State
	prompt := d.Prompt()
	prefs := d.Preferences()
	a.dialogMu.Unlock()

	resp := map[string]interface{}{
		"state":  state,
		"prompt": prompt,
	}

	if state == assist.DialogRecommend {
		candidates, err := a.catalog.ListProducts(r.Context(), 100, 0)
		if err == nil {
			ids := assist.RecommendOrFallback(r.Context(), a.recommender, prefs, candidates)
			picks := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				for i := range candidates {
					if candidates[i].ID == id {
						picks = append(picks, candidates[i])
						break
					}
				}
			}
			resp["recommendations"] = picks
		}
		a.dialogMu.Lock()
		d.Advance("")
		a.dialogMu.Unlock()
	}
	writeJSON(w, http.StatusOK, resp)
}
