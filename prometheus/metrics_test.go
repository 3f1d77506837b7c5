package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/widgets/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/widgets/:id", http.MethodGet, "204"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/9", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	after := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/widgets/:id", http.MethodGet, "204"))
	assert.Equal(t, before+1, after)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(EmailCounter.WithLabelValues("failed"))
	RecordEmail("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(EmailCounter.WithLabelValues("failed")))

	before = testutil.ToFloat64(UploadCounter.WithLabelValues("logo", "stored"))
	RecordUpload("logo", "stored")
	assert.Equal(t, before+1, testutil.ToFloat64(UploadCounter.WithLabelValues("logo", "stored")))
}

func TestTrackDBOperationObserves(t *testing.T) {
	TrackDBOperation("query")(time.Now())

	count := testutil.CollectAndCount(DBOperationDuration)
	assert.GreaterOrEqual(t, count, 1)
}

func TestPrometheusHandlerExposesNamespace(t *testing.T) {
	RecordProductOperation("create")

	rec := httptest.NewRecorder()
	GetPrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "storefront_product_operations_total"))
}
