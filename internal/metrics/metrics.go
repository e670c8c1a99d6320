// Package metrics holds the Prometheus collectors of the API.  They are
// registered on the default registry and exposed by /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_orders_total",
		Help: "Order lifecycle transitions by resulting status",
	}, []string{"status"})

	stockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_stock_movements_total",
		Help: "Inventory ledger entries by change type",
	}, []string{"change_type"})

	stockUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_stock_units_total",
		Help: "Absolute number of stock units moved, by change type",
	}, []string{"change_type"})

	returns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_returns_total",
		Help: "Return requests by resulting status",
	}, []string{"status"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_events_published_total",
		Help: "Domain events handed to the broker, by routing key and result",
	}, []string{"routing_key", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin counts a login attempt; result is "success" or "failure".
func ObserveLogin(result string) { logins.WithLabelValues(result).Inc() }

func ObserveOrder(status string) { orders.WithLabelValues(status).Inc() }

// ObserveStockMovement counts one ledger entry moving delta units.
func ObserveStockMovement(changeType string, delta int) {
	stockMovements.WithLabelValues(changeType).Inc()
	if delta < 0 {
		delta = -delta
	}
	stockUnits.WithLabelValues(changeType).Add(float64(delta))
}

func ObserveReturn(status string) { returns.WithLabelValues(status).Inc() }

func ObservePublish(routingKey string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(routingKey, result).Inc()
}

// Middleware instruments every request.  The path label is the route
// template (e.g. /v1/orders/:id) so ids do not explode the cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			// Render errors here so the recorded status is the one sent.
			if err := next(c); err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			ObserveHTTPRequest(c.Request().Method, path, strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}
