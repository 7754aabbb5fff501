package metrics

import "go.opentelemetry.io/otel/metric/noop"

// NewNoop returns an AppMetrics wired to no-op instruments, for tests and
// for running without an OTLP endpoint.
func NewNoop() *AppMetrics {
	meter := noop.NewMeterProvider().Meter("duka-api")

	httpRequestsTotal, _ := meter.Int64Counter("http.server.request.count")
	httpRequestsErrors, _ := meter.Int64Counter("http.server.request.error.count")
	httpRequestDuration, _ := meter.Float64Histogram("http.server.request.duration")
	dbQueriesTotal, _ := meter.Int64Counter("db.client.queries.count")
	dbQueryDuration, _ := meter.Float64Histogram("db.client.queries.duration")
	ordersPlaced, _ := meter.Int64Counter("orders_placed_total")
	revenueTotal, _ := meter.Float64Counter("revenue_total")
	productsViewed, _ := meter.Int64Counter("products_viewed_total")
	cartItemsCount, _ := meter.Int64Gauge("cart_items_count")
	activeCartsCount, _ := meter.Int64Gauge("active_carts_count")
	listingsSubmitted, _ := meter.Int64Counter("listings_submitted_total")
	offersCreated, _ := meter.Int64Counter("offers_created_total")
	importQuotes, _ := meter.Int64Counter("import_quotes_total")
	cacheHits, _ := meter.Int64Counter("cache_hits_total")
	cacheMisses, _ := meter.Int64Counter("cache_misses_total")

	return &AppMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestsErrors:  httpRequestsErrors,
		HTTPRequestDuration: httpRequestDuration,
		DBQueriesTotal:      dbQueriesTotal,
		DBQueryDuration:     dbQueryDuration,
		OrdersPlaced:        ordersPlaced,
		RevenueTotal:        revenueTotal,
		ProductsViewed:      productsViewed,
		CartItemsCount:      cartItemsCount,
		ActiveCartsCount:    activeCartsCount,
		ListingsSubmitted:   listingsSubmitted,
		OffersCreated:       offersCreated,
		ImportQuotes:        importQuotes,
		CacheHits:           cacheHits,
		CacheMisses:         cacheMisses,
		serviceName:         "duka-api",
	}
}
