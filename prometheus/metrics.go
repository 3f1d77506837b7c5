package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	// HTTP request metrics
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Account metrics
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of completed user registrations",
		},
	)

	VerificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of email verification attempts",
		},
		[]string{"result"},
	)

	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Total number of bearer token requests",
		},
		[]string{"result"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_errors_total",
			Help:      "Total number of authentication and authorization failures",
		},
		[]string{"type"}, // missing_token, invalid_token, not_owner, ...
	)

	// Notification metrics
	EmailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_emails_total",
			Help:      "Total number of verification email delivery attempts",
		},
		[]string{"result"},
	)

	// Upload metrics
	UploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Total number of image uploads",
		},
		[]string{"target", "result"},
	)

	// Catalog metrics
	ProductOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_operations_total",
			Help:      "Total number of product operations",
		},
		[]string{"operation"},
	)

	BusinessOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "business_operations_total",
			Help:      "Total number of business operations",
		},
		[]string{"operation"},
	)

	// Database operation metrics
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Information about the storefront service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(VerificationCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(EmailCounter)
	prometheus.MustRegister(UploadCounter)
	prometheus.MustRegister(ProductOperationsCounter)
	prometheus.MustRegister(BusinessOperationsCounter)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations.
// Usage: defer TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.WithLabelValues(endpoint, method, status).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordLogin records a token request outcome
func RecordLogin(result string) {
	LoginCounter.WithLabelValues(result).Inc()
}

// RecordVerification records a verification attempt outcome
func RecordVerification(result string) {
	VerificationCounter.WithLabelValues(result).Inc()
}

// RecordEmail records a verification email delivery outcome
func RecordEmail(result string) {
	EmailCounter.WithLabelValues(result).Inc()
}

// RecordUpload records an image upload outcome for a target (logo, product)
func RecordUpload(target, result string) {
	UploadCounter.WithLabelValues(target, result).Inc()
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	ProductOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordBusinessOperation increments the counter for business operations
func RecordBusinessOperation(operation string) {
	BusinessOperationsCounter.WithLabelValues(operation).Inc()
}
