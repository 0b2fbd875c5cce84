package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"pay_token", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pay_token"},
	)

	// Compose metrics
	ComposeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_compose_requests_total",
			Help: "Total number of settle transaction compose requests",
		},
		[]string{"pay_token", "status"},
	)

	ComposeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_compose_duration_seconds",
			Help:    "Settle transaction compose duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pay_token"},
	)

	RemainingAccounts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settle_remaining_accounts",
		Help:    "Number of swap route accounts merged into the settle instruction",
		Buckets: []float64{0, 4, 8, 12, 16, 24, 32, 48, 64},
	})

	// Aggregator metrics
	AggregatorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_aggregator_requests_total",
			Help: "Total number of aggregator API calls",
		},
		[]string{"endpoint", "status"},
	)

	AggregatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_aggregator_duration_seconds",
			Help:    "Aggregator API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Chain read metrics
	ChainReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_chain_reads_total",
			Help: "Total number of on-chain account reads",
		},
		[]string{"record", "status"},
	)

	// Merchant store metrics
	MerchantCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settle_merchant_count",
		Help: "Number of registered merchant profiles",
	})

	PaymentLinkCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settle_payment_link_count",
		Help: "Number of active payment links",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
