package models

import "time"

// DeliveryType selects between shop pickup and courier delivery.
type DeliveryType string

const (
	DeliveryPickup  DeliveryType = "PICKUP"
	DeliveryCourier DeliveryType = "DELIVERY"
)

// OrderStatus is the fulfillment axis of an order.
type OrderStatus string

const (
	StatusOrdered   OrderStatus = "Ordered"
	StatusPreparing OrderStatus = "Preparing"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
)

// ValidOrderStatuses gates admin status writes to enum members. Ordering is
// deliberately not enforced: admins may move an order backwards to correct
// mistakes.
var ValidOrderStatuses = map[OrderStatus]bool{
	StatusOrdered:   true,
	StatusPreparing: true,
	StatusShipped:   true,
	StatusDelivered: true,
}

// PaymentStatus is the payment axis, independent of fulfillment.
type PaymentStatus string

const (
	PaymentUnpaid              PaymentStatus = "Unpaid"
	PaymentPendingVerification PaymentStatus = "Pending Verification"
	PaymentReceived            PaymentStatus = "Received"
)

var ValidPaymentStatuses = map[PaymentStatus]bool{
	PaymentUnpaid:              true,
	PaymentPendingVerification: true,
	PaymentReceived:            true,
}

// ListingStatus tracks a marketplace listing through admin review.
type ListingStatus string

const (
	ListingPending  ListingStatus = "Pending"
	ListingApproved ListingStatus = "Approved"
	ListingRejected ListingStatus = "Rejected"
)

var ValidListingStatuses = map[ListingStatus]bool{
	ListingPending:  true,
	ListingApproved: true,
	ListingRejected: true,
}

// OfferStatus tracks a buyer offer through admin review.
type OfferStatus string

const (
	OfferPending  OfferStatus = "Pending"
	OfferAccepted OfferStatus = "Accepted"
	OfferRejected OfferStatus = "Rejected"
)

var ValidOfferStatuses = map[OfferStatus]bool{
	OfferPending:  true,
	OfferAccepted: true,
	OfferRejected: true,
}

// Role is the access level of a user account.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// VariationType enumerates the kinds of product variations the shop sells.
type VariationType string

const (
	VariationSize   VariationType = "Size"
	VariationDesign VariationType = "Design"
	VariationBundle VariationType = "Bundle"
	VariationColor  VariationType = "Color"
)

// GuestUserID is the sentinel owner for carts and orders placed without an
// account.
const GuestUserID = "guest"

// Product is a catalog entry.
type Product struct {
	ID          string             `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Description string             `json:"description" db:"description"`
	Price       float64            `json:"price" db:"price"`
	Currency    string             `json:"currency" db:"currency"`
	Images      []string           `json:"images"`
	Colors      []string           `json:"colors"`
	Stock       int                `json:"stock" db:"stock"`
	Category    string             `json:"category" db:"category"`
	SalesCount  int                `json:"sales_count" db:"sales_count"`
	Variations  []ProductVariation `json:"variations,omitempty"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// ProductVariation is a seller-defined option on a product. Price and Image
// are overrides: nil means "inherit from the product".
type ProductVariation struct {
	ID        string        `json:"id" db:"id"`
	ProductID string        `json:"product_id" db:"product_id"`
	Type      VariationType `json:"type" db:"type"`
	Value     string        `json:"value" db:"value"`
	Price     *float64      `json:"price,omitempty" db:"price"`
	Image     *string       `json:"image,omitempty" db:"image"`
	Stock     *int          `json:"stock,omitempty" db:"stock"`
}

// CartItem is a product snapshot plus the buyer's selection. Line identity is
// (ProductID, Color, VariationID); quantities merge on that key.
type CartItem struct {
	Product     Product           `json:"product"`
	Quantity    int               `json:"quantity"`
	Color       string            `json:"color"`
	VariationID string            `json:"variation_id,omitempty"`
	Variation   *ProductVariation `json:"variation,omitempty"`
}

// UnitPrice returns the effective price of one unit, honoring a variation
// price override.
func (ci CartItem) UnitPrice() float64 {
	if ci.Variation != nil && ci.Variation.Price != nil {
		return *ci.Variation.Price
	}
	return ci.Product.Price
}

// Order is the materialized result of a completed checkout. Items is a copied
// snapshot of the cart, not a reference.
type Order struct {
	ID            string        `json:"id" db:"id"`
	DisplayCode   string        `json:"display_code" db:"display_code"`
	SpecialCode   string        `json:"special_code" db:"special_code"`
	UserID        string        `json:"user_id" db:"user_id"`
	Items         []CartItem    `json:"items"`
	Subtotal      float64       `json:"subtotal" db:"subtotal"`
	DeliveryFee   float64       `json:"delivery_fee" db:"delivery_fee"`
	Total         float64       `json:"total" db:"total"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	DeliveryType  DeliveryType  `json:"delivery_type" db:"delivery_type"`
	Town          string        `json:"town" db:"town"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// Deal marks a product as a hot deal at a discounted price. Active is a
// manual flag; ExpiresAt is display-only and never filtered on.
type Deal struct {
	ID        string    `json:"id" db:"id"`
	ProductID string    `json:"product_id" db:"product_id"`
	DealPrice float64   `json:"deal_price" db:"deal_price"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GadgetListing is a peer-to-peer sale submission awaiting admin review.
type GadgetListing struct {
	ID           string        `json:"id" db:"id"`
	SellerID     string        `json:"seller_id" db:"seller_id"`
	SellerName   string        `json:"seller_name" db:"seller_name"`
	DeviceName   string        `json:"device_name" db:"device_name"`
	Condition    string        `json:"condition" db:"condition"` // New, Like New, Good, Fair
	DurationUsed string        `json:"duration_used" db:"duration_used"`
	Reason       string        `json:"reason" db:"reason"`
	AskingPrice  float64       `json:"asking_price" db:"asking_price"`
	Location     string        `json:"location" db:"location"`
	Phone        string        `json:"phone" db:"phone"`
	Images       []string      `json:"images"`
	Status       ListingStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// Offer records a buyer's expressed interest in an approved listing.
type Offer struct {
	ID         string      `json:"id" db:"id"`
	GadgetID   string      `json:"gadget_id" db:"gadget_id"`
	GadgetName string      `json:"gadget_name" db:"gadget_name"`
	BuyerName  string      `json:"buyer_name" db:"buyer_name"`
	BuyerEmail string      `json:"buyer_email" db:"buyer_email"`
	Amount     float64     `json:"amount" db:"amount"`
	Status     OfferStatus `json:"status" db:"status"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// User is an account. Email is the natural key, stored lowercased.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	Town         string    `json:"town" db:"town"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AddToCartRequest adds a line to the caller's cart.
type AddToCartRequest struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Color       string `json:"color"`
	VariationID string `json:"variation_id,omitempty"`
}

// CartKeyRequest identifies a cart line for update or removal.
type CartKeyRequest struct {
	ProductID   string `json:"product_id"`
	Color       string `json:"color"`
	VariationID string `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

// CheckoutInput carries the delivery choice made on the checkout stage.
type CheckoutInput struct {
	DeliveryType DeliveryType `json:"delivery_type"`
	Town         string       `json:"town"`
}

// ImportQuoteRequest asks for a Buy-For-Me cost breakdown.
type ImportQuoteRequest struct {
	USDPrice float64 `json:"usd_price"`
	ItemURL  string  `json:"item_url"`
}

// SubmitListingRequest is a seller's marketplace submission.
type SubmitListingRequest struct {
	SellerName   string   `json:"seller_name"`
	DeviceName   string   `json:"device_name"`
	Condition    string   `json:"condition"`
	DurationUsed string   `json:"duration_used"`
	Reason       string   `json:"reason"`
	AskingPrice  float64  `json:"asking_price"`
	Location     string   `json:"location"`
	Phone        string   `json:"phone"`
	Images       []string `json:"images"`
}

// InterestRequest records a buyer expressing interest in a listing.
type InterestRequest struct {
	BuyerName  string  `json:"buyer_name"`
	BuyerEmail string  `json:"buyer_email"`
	Amount     float64 `json:"amount"`
}

// SignUpRequest creates an account.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Town     string `json:"town"`
}

// SignInRequest authenticates an account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on successful sign-in or sign-up.
type SessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RecommendRequest asks the assistant for product picks.
type RecommendRequest struct {
	Preferences string `json:"preferences"`
}
