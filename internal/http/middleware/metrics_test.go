package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/products/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Baselines keep the test stable when other tests touched the registry.
	baseRoute := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/products/:id", "200"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/P1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /products/P1 -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /does-not-exist -> %d", w.Code)
	}

	// Matched routes use the registered pattern, not the raw URL.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/products/:id", "200")); got != baseRoute+1 {
		t.Fatalf("route-pattern counter = %v; want +1", got)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/products/P1", "200")); got != 0 {
		t.Fatalf("raw URL leaked into path label: %v", got)
	}
	// Unmatched requests fall back to the raw path.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != baseMiss+1 {
		t.Fatalf("fallback counter = %v; want +1", got)
	}

	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight gauge = %v; want 0 after requests drain", got)
	}
}
