package api

import "github.com/prometheus/client_golang/prometheus"

const namespace = "surveydash"

var httpRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	},
	[]string{"route", "method", "status"},
)

var httpDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

var loginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Password attempts by result.",
	},
	[]string{"result"},
)

var filterMatched = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "filter_matched_rows",
		Help:      "Responses matched per filter application.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	},
)

var datasetRows = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_rows",
		Help:      "Responses in the loaded dataset.",
	},
	[]string{"dataset"},
)

func init() {
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDuration)
	prometheus.MustRegister(loginAttempts)
	prometheus.MustRegister(filterMatched)
	prometheus.MustRegister(datasetRows)
}
