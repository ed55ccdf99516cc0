package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareIncrementsCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	r.Use(Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test", "200")); got < 1 {
		t.Fatalf("expected request counter to be incremented, got %v", got)
	}
}

func TestRegisterExposesMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	Register(r, "/metrics")

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected body from /metrics, got empty")
	}
}

func TestObserveHandlerCountsOutcomes(t *testing.T) {
	InitMetrics()

	before := testutil.ToFloat64(handlerInvocations.WithLabelValues("lookup", "error"))
	ObserveHandler("lookup", errors.New("boom"))
	ObserveHandler("lookup", nil)

	if got := testutil.ToFloat64(handlerInvocations.WithLabelValues("lookup", "error")); got != before+1 {
		t.Fatalf("expected error counter to grow by one, got %v -> %v", before, got)
	}
}
