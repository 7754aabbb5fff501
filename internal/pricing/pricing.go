// Package pricing holds the store's money rules: domestic delivery fees,
// Buy-For-Me import quotes, marketplace payout splits, and cart subtotals.
// Everything here is a pure function over its inputs.
package pricing

import (
	"math"
	"sort"
	"strings"

	"github.com/zuritech/duka-api/internal/models"
)

// ExchangeRate is the fixed KES per USD rate used for import quotes.
const ExchangeRate = 130.0

const (
	// Flat USD components of an import quote, converted at ExchangeRate.
	flatShippingUSD = 25.0
	flatServiceUSD  = 30.0
	flatAppleUSD    = 20.0

	// Service fee switches from flat to percentage at this USD price.
	serviceFeeThresholdUSD = 750.0

	shippingRate = 0.035
	serviceRate  = 0.045

	// Domestic delivery.
	metroMinimumFee = 360.0
	metroPerKmFee   = 60.0
	defaultFee      = 500.0

	// Marketplace commission on the asking price.
	marketFeeRate = 0.07
)

// metroDistances maps Nairobi-metro towns to their distance from the shop in
// kilometers. Fee is max(metroMinimumFee, km*metroPerKmFee).
var metroDistances = map[string]float64{
	"Westlands":  5,
	"Kilimani":   6,
	"Kasarani":   12,
	"Embakasi":   14,
	"Kiambu":     16,
	"Karen":      17,
	"Kikuyu":     20,
	"Rongai":     22,
	"Ngong":      22,
	"Ruiru":      25,
	"Athi River": 27,
	"Kitengela":  30,
	"Juja":       32,
	"Limuru":     35,
	"Thika":      42,
}

// zoneFees maps towns outside the Nairobi metro to flat courier fees.
var zoneFees = map[string]float64{
	"Nakuru":   500,
	"Nyeri":    450,
	"Embu":     450,
	"Meru":     550,
	"Kericho":  550,
	"Kisumu":   700,
	"Eldoret":  650,
	"Kakamega": 700,
	"Kisii":    650,
	"Mombasa":  750,
	"Malindi":  800,
	"Garissa":  800,
}

// townNames is the sorted union of both tables, computed once.
var townNames = func() []string {
	names := make([]string, 0, len(metroDistances)+len(zoneFees))
	for t := range metroDistances {
		names = append(names, t)
	}
	for t := range zoneFees {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}()

// Towns returns every town the delivery tables know about, sorted.
func Towns() []string {
	out := make([]string, len(townNames))
	copy(out, townNames)
	return out
}

// DeliveryFee computes the domestic courier fee in KES. Pickup is always free.
// Metro towns pay by distance with a minimum, zone towns pay a flat rate, and
// anything else (including an empty town) falls back to the default fee.
func DeliveryFee(town string, dt models.DeliveryType) float64 {
	if dt == models.DeliveryPickup {
		return 0
	}
	if km, ok := metroDistances[town]; ok {
		return math.Max(metroMinimumFee, km*metroPerKmFee)
	}
	if fee, ok := zoneFees[town]; ok {
		return fee
	}
	return defaultFee
}

// ImportQuote is the per-component KES breakdown of a Buy-For-Me purchase.
type ImportQuote struct {
	Base     float64 `json:"base"`
	Shipping float64 `json:"shipping"`
	Service  float64 `json:"service"`
	Apple    float64 `json:"apple"`
	Total    float64 `json:"total"`
}

// ComputeImportQuote prices a US-sourced item in KES. The second return is
// false when the input is incomplete (non-positive price or empty URL); that
// is "no quote yet", not an error.
//
// The service fee is a step function: flat below $750, percentage at and
// above it. Anything hosted on apple.com carries a fixed surcharge.
func ComputeImportQuote(usdPrice float64, itemURL string) (ImportQuote, bool) {
	if usdPrice <= 0 || itemURL == "" {
		return ImportQuote{}, false
	}

	base := usdPrice * ExchangeRate
	shipping := flatShippingUSD*ExchangeRate + base*shippingRate

	var service float64
	if usdPrice < serviceFeeThresholdUSD {
		service = flatServiceUSD * ExchangeRate
	} else {
		service = base * serviceRate
	}

	var apple float64
	if strings.Contains(strings.ToLower(itemURL), "apple.com") {
		apple = flatAppleUSD * ExchangeRate
	}

	return ImportQuote{
		Base:     base,
		Shipping: shipping,
		Service:  service,
		Apple:    apple,
		Total:    base + shipping + service + apple,
	}, true
}

// SellerPayout splits a marketplace asking price into the store's commission
// and the seller's payout, both rounded to whole shillings.
func SellerPayout(askingPrice float64) (fee, payout float64) {
	fee = math.Round(askingPrice * marketFeeRate)
	payout = math.Round(askingPrice - fee)
	return fee, payout
}

// Subtotal sums the cart at effective unit prices.
func Subtotal(items []models.CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.UnitPrice() * float64(it.Quantity)
	}
	return total
}
