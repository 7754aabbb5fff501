package pricing

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/zuritech/duka-api/internal/models"
)

func TestDeliveryFeeMetroTowns(t *testing.T) {
	for town, km := range metroDistances {
		want := math.Max(360, km*60)
		if got := DeliveryFee(town, models.DeliveryCourier); got != want {
			t.Errorf("DeliveryFee(%q) = %v, want %v", town, got, want)
		}
	}
}

func TestDeliveryFeeZoneTowns(t *testing.T) {
	for town, flat := range zoneFees {
		if got := DeliveryFee(town, models.DeliveryCourier); got != flat {
			t.Errorf("DeliveryFee(%q) = %v, want flat %v", town, got, flat)
		}
	}
}

func TestDeliveryFeeMetroMinimum(t *testing.T) {
	// Westlands is 5km out; 5*60=300 is below the 360 floor.
	if got := DeliveryFee("Westlands", models.DeliveryCourier); got != 360 {
		t.Errorf("DeliveryFee(Westlands) = %v, want 360", got)
	}
}

func TestDeliveryFeeDefaults(t *testing.T) {
	for _, town := range []string{"", "Atlantis", "nakuru"} {
		if got := DeliveryFee(town, models.DeliveryCourier); got != 500 {
			t.Errorf("DeliveryFee(%q) = %v, want default 500", town, got)
		}
	}
}

func TestDeliveryFeePickupAlwaysFree(t *testing.T) {
	for _, town := range []string{"", "Thika", "Mombasa", "Atlantis"} {
		if got := DeliveryFee(town, models.DeliveryPickup); got != 0 {
			t.Errorf("DeliveryFee(%q, PICKUP) = %v, want 0", town, got)
		}
	}
}

func TestTownsSortedUnion(t *testing.T) {
	towns := Towns()
	if len(towns) != len(metroDistances)+len(zoneFees) {
		t.Fatalf("Towns() has %d entries, want %d", len(towns), len(metroDistances)+len(zoneFees))
	}
	if !sort.StringsAreSorted(towns) {
		t.Error("Towns() is not sorted")
	}
}

func TestComputeImportQuoteBasic(t *testing.T) {
	q, ok := ComputeImportQuote(100, "https://www.amazon.com/dp/B0TEST")
	if !ok {
		t.Fatal("expected a quote for complete input")
	}
	base := 100 * ExchangeRate
	shipping := flatShippingUSD*ExchangeRate + base*0.035
	service := 30 * ExchangeRate // flat, since 100 < 750
	if q.Base != base {
		t.Errorf("Base = %v, want %v", q.Base, base)
	}
	if q.Shipping != shipping {
		t.Errorf("Shipping = %v, want %v", q.Shipping, shipping)
	}
	if q.Service != service {
		t.Errorf("Service = %v, want %v", q.Service, service)
	}
	if q.Apple != 0 {
		t.Errorf("Apple = %v, want 0", q.Apple)
	}
	if want := base + shipping + service; q.Total != want {
		t.Errorf("Total = %v, want %v", q.Total, want)
	}
}

func TestComputeImportQuoteIncompleteInput(t *testing.T) {
	cases := []struct {
		usd float64
		url string
	}{
		{0, "https://example.com"},
		{-10, "https://example.com"},
		{100, ""},
	}
	for _, c := range cases {
		if _, ok := ComputeImportQuote(c.usd, c.url); ok {
			t.Errorf("ComputeImportQuote(%v, %q) produced a quote, want none", c.usd, c.url)
		}
	}
}

func TestComputeImportQuoteServiceFeeBoundary(t *testing.T) {
	// The step is at exactly $750 with a strict <.
	below, _ := ComputeImportQuote(749, "https://example.com/item")
	if want := flatServiceUSD * ExchangeRate; below.Service != want {
		t.Errorf("at $749 Service = %v, want flat %v", below.Service, want)
	}
	at, _ := ComputeImportQuote(750, "https://example.com/item")
	if want := 750 * ExchangeRate * 0.045; at.Service != want {
		t.Errorf("at $750 Service = %v, want %v", at.Service, want)
	}
	if below.Service == at.Service {
		t.Error("no discontinuity at the $750 boundary")
	}
}

func TestComputeImportQuoteAppleSurcharge(t *testing.T) {
	withFee := []string{
		"https://www.apple.com/shop/buy-iphone",
		"HTTPS://WWW.APPLE.COM/macbook",
		"https://refurb.Apple.Com/ke/shop",
	}
	for _, u := range withFee {
		q, _ := ComputeImportQuote(200, u)
		if want := flatAppleUSD * ExchangeRate; q.Apple != want {
			t.Errorf("Apple fee for %q = %v, want %v", u, q.Apple, want)
		}
	}
	q, _ := ComputeImportQuote(200, "https://www.bestbuy.com/site/pixel")
	if q.Apple != 0 {
		t.Errorf("Apple fee for non-apple URL = %v, want 0", q.Apple)
	}
}

func TestSellerPayout(t *testing.T) {
	fee, payout := SellerPayout(1000)
	if fee != 70 || payout != 930 {
		t.Errorf("SellerPayout(1000) = (%v, %v), want (70, 930)", fee, payout)
	}
	for _, price := range []float64{1, 99, 1234, 54999, 120000} {
		fee, payout := SellerPayout(price)
		if diff := math.Abs(fee + payout - math.Round(price)); diff > 1 {
			t.Errorf("SellerPayout(%v): fee+payout off by %v", price, diff)
		}
	}
}

func TestSubtotal(t *testing.T) {
	override := 2500.0
	items := []models.CartItem{
		{
			Product:  models.Product{ID: "p1", Price: 1000},
			Quantity: 2,
			Color:    "Black",
		},
		{
			Product:     models.Product{ID: "p2", Price: 3000},
			Quantity:    1,
			Color:       "Silver",
			VariationID: "v1",
			Variation: &models.ProductVariation{
				ID:    "v1",
				Type:  models.VariationBundle,
				Price: &override,
			},
		},
	}
	if got := Subtotal(items); got != 2*1000+2500 {
		t.Errorf("Subtotal = %v, want 4500", got)
	}
	if got := Subtotal(nil); got != 0 {
		t.Errorf("Subtotal(nil) = %v, want 0", got)
	}
}

func TestMetroTownsNotCaseInsensitive(t *testing.T) {
	// Matching is exact-string against the tables.
	if got := DeliveryFee(strings.ToUpper("Thika"), models.DeliveryCourier); got != 500 {
		t.Errorf("DeliveryFee(THIKA) = %v, want default 500", got)
	}
}
