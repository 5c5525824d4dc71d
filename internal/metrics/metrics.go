package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefinder"

var (
	httpRequestsTotal  *prometheus.CounterVec
	authEventsTotal    *prometheus.CounterVec
	mailDeliveries     *prometheus.CounterVec
	storeRatingsTotal  prometheus.Counter
	mailQueueDepth     prometheus.Gauge
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the API.",
		}, []string{"method", "path", "status"})

		authEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Account lifecycle events by outcome.",
		}, []string{"event", "result"})

		mailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_deliveries_total",
			Help:      "Queued mail deliveries by kind and outcome.",
		}, []string{"kind", "result"})

		storeRatingsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_ratings_total",
			Help:      "Accepted store ratings.",
		})

		mailQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mail_queue_depth",
			Help:      "Mail jobs waiting in the queue.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncAuthEvent(event string, err error) {
	if authEventsTotal == nil {
		return
	}
	authEventsTotal.WithLabelValues(event, result(err)).Inc()
}

func IncMailDelivery(kind string, err error) {
	if mailDeliveries == nil {
		return
	}
	mailDeliveries.WithLabelValues(kind, result(err)).Inc()
}

func IncRating() {
	if storeRatingsTotal == nil {
		return
	}
	storeRatingsTotal.Inc()
}

func SetMailQueueDepth(n int) {
	if mailQueueDepth == nil {
		return
	}
	mailQueueDepth.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
