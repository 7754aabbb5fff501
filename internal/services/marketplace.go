package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zuritech/duka-api/internal/audit"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/notify"
	"github.com/zuritech/duka-api/internal/pricing"
	"github.com/zuritech/duka-api/internal/repository"
	"go.opentelemetry.io/otel/metric"
)

// MarketplaceService runs the peer-to-peer gadget flow: seller submissions,
// the admin approval queue, the public approved feed, and buyer interest.
// Listings and offers are separate review pipelines; approving an offer does
// not touch the listing it points at.
type MarketplaceService struct {
	listings repository.ListingRepository
	offers   repository.OfferRepository
	audit    *audit.Recorder
	metrics  *metrics.AppMetrics

	whatsAppPhone string
	storeEmail    string
}

// NewMarketplaceService creates a new marketplace service.
func NewMarketplaceService(listings repository.ListingRepository, offers repository.OfferRepository,
	recorder *audit.Recorder, m *metrics.AppMetrics, whatsAppPhone, storeEmail string) *MarketplaceService {
	return &MarketplaceService{
		listings:      listings,
		offers:        offers,
		audit:         recorder,
		metrics:       m,
		whatsAppPhone: whatsAppPhone,
		storeEmail:    storeEmail,
	}
}

// SubmitListing accepts a seller's submission into the review queue. Every new
// listing starts Pending regardless of who submits it.
func (s *MarketplaceService) SubmitListing(ctx context.Context, sellerID string, req models.SubmitListingRequest) (*models.GadgetListing, error) {
	if strings.TrimSpace(req.DeviceName) == "" || strings.TrimSpace(req.SellerName) == "" {
		return nil, fmt.Errorf("device name and seller name are required")
	}
	if req.AskingPrice <= 0 {
		return nil, fmt.Errorf("asking price must be positive")
	}

	listing := models.GadgetListing{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		SellerName:   req.SellerName,
		DeviceName:   req.DeviceName,
		Condition:    req.Condition,
		DurationUsed: req.DurationUsed,
		Reason:       req.Reason,
		AskingPrice:  req.AskingPrice,
		Location:     req.Location,
		Phone:        req.Phone,
		Images:       req.Images,
		Status:       models.ListingPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.listings.Create(ctx, &listing); err != nil {
		return nil, fmt.Errorf("failed to submit listing: %w", err)
	}

	s.metrics.ListingsSubmitted.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	s.audit.RecordStatusChange(listing.ID, "listing", "", string(listing.Status), sellerID)
	log.Printf("[MARKET] Listing submitted: id=%s device=%s price=%.0f", listing.ID, listing.DeviceName, listing.AskingPrice)
	return &listing, nil
}

// ApprovedFeed returns the public marketplace feed: approved listings only.
func (s *MarketplaceService) ApprovedFeed(ctx context.Context) ([]models.GadgetListing, error) {
	return s.listings.ListByStatus(ctx, models.ListingApproved)
}

// ListAllListings returns every listing for the admin review queue.
func (s *MarketplaceService) ListAllListings(ctx context.Context) ([]models.GadgetListing, error) {
	return s.listings.ListAll(ctx)
}

// GetListing returns a single listing by id.
func (s *MarketplaceService) GetListing(ctx context.Context, id string) (*models.GadgetListing, error) {
	return s.listings.Get(ctx, id)
}

// DecisionNotice is the seller hand-off composed after a listing status
// change: a pre-filled WhatsApp link to the seller's phone and a mailto copy
// addressed to the shop inbox. A link is empty when its contact detail is
// missing; composition is best effort and never blocks the status change.
type DecisionNotice struct {
	ListingID    string               `json:"listing_id"`
	Status       models.ListingStatus `json:"status"`
	WhatsAppLink string               `json:"whatsapp_link,omitempty"`
	MailtoLink   string               `json:"mailto_link,omitempty"`
}

// SetListingStatus moves a listing to any member of the status enum and
// composes the seller notice for the new status. Admins may re-approve or
// re-reject freely; no ordering is enforced.
func (s *MarketplaceService) SetListingStatus(ctx context.Context, id string, status models.ListingStatus, actor string) (*DecisionNotice, error) {
	if !models.ValidListingStatuses[status] {
		return nil, fmt.Errorf("invalid status value")
	}

	old := ""
	existing, err := s.listings.Get(ctx, id)
	if err == nil {
		old = string(existing.Status)
	}

	if err := s.listings.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit.RecordStatusChange(id, "listing", old, string(status), actor)
	log.Printf("[MARKET] Listing status change: id=%s %s -> %s by %s", id, old, status, actor)

	notice := &DecisionNotice{ListingID: id, Status: status}
	if existing != nil {
		msg := notify.ListingDecision(existing, status)
		if existing.Phone != "" {
			notice.WhatsAppLink = notify.WhatsAppLink(existing.Phone, msg)
		}
		if s.storeEmail != "" {
			subject := fmt.Sprintf("Listing %s: %s", status, existing.DeviceName)
			notice.MailtoLink = notify.MailtoLink(s.storeEmail, subject, msg)
		}
	}
	return notice, nil
}

// InterestResult is returned to a buyer who expressed interest: the recorded
// offer plus a pre-filled WhatsApp hand-off to the shop.
type InterestResult struct {
	Offer        models.Offer `json:"offer"`
	WhatsAppLink string       `json:"whatsapp_link"`
}

// ExpressInterest records a buyer's offer against an approved listing. The
// offer snapshots the gadget name; later listing changes do not flow back into
// recorded offers.
func (s *MarketplaceService) ExpressInterest(ctx context.Context, listingID string, req models.InterestRequest) (*InterestResult, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingApproved {
		return nil, fmt.Errorf("listing is not open for offers")
	}
	if strings.TrimSpace(req.BuyerName) == "" {
		return nil, fmt.Errorf("buyer name is required")
	}

	amount := req.Amount
	if amount <= 0 {
		amount = listing.AskingPrice
	}

	offer := models.Offer{
		ID:         uuid.New().String(),
		GadgetID:   listing.ID,
		GadgetName: listing.DeviceName,
		BuyerName:  req.BuyerName,
		BuyerEmail: strings.ToLower(strings.TrimSpace(req.BuyerEmail)),
		Amount:     amount,
		Status:     models.OfferPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.offers.Create(ctx, &offer); err != nil {
		return nil, fmt.Errorf("failed to record offer: %w", err)
	}

	s.metrics.OffersCreated.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	s.audit.RecordStatusChange(offer.ID, "offer", "", string(offer.Status), req.BuyerName)
	log.Printf("[MARKET] Offer created: id=%s gadget=%s amount=%.0f", offer.ID, offer.GadgetName, offer.Amount)

	return &InterestResult{
		Offer:        offer,
		WhatsAppLink: notify.WhatsAppLink(s.whatsAppPhone, notify.ListingInterest(listing, req.BuyerName)),
	}, nil
}

// ListOffers returns every recorded offer for the admin dashboard.
func (s *MarketplaceService) ListOffers(ctx context.Context) ([]models.Offer, error) {
	return s.offers.ListAll(ctx)
}

// SetOfferStatus moves an offer to any member of the status enum. This is a
// bookkeeping decision only; the linked listing keeps its own status.
func (s *MarketplaceService) SetOfferStatus(ctx context.Context, id string, status models.OfferStatus, actor string) error {
	if !models.ValidOfferStatuses[status] {
		return fmt.Errorf("invalid status value")
	}
	if err := s.offers.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.audit.RecordStatusChange(id, "offer", "", string(status), actor)
	log.Printf("[MARKET] Offer status change: id=%s -> %s by %s", id, status, actor)
	return nil
}

// PayoutQuote shows a seller what they would receive after the marketplace fee.
func (s *MarketplaceService) PayoutQuote(askingPrice float64) (fee, payout float64) {
	return pricing.SellerPayout(askingPrice)
}
