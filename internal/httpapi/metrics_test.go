package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	return mrr.Body.Bytes()
}

func preview(b []byte) string {
	if len(b) > 400 {
		b = b[:400]
	}
	return string(b)
}

func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := scrape(t); !bytes.Contains(body, []byte("xinsight_http_requests_total")) {
		t.Fatalf("expected xinsight_http_requests_total in metrics; got: %q", preview(body))
	}
}

// The mux labels requests by chi route pattern instead of the raw URL path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	h := NewMux(&mockService{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/labels?x=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/labels", http.MethodGet, "200"))
	if got < 1 {
		t.Fatalf("expected /labels counter >= 1, got %v", got)
	}
}

func TestIncrementUploadRejection(t *testing.T) {
	baseline := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("too_large"))
	IncrementUploadRejection("too_large")
	IncrementUploadRejection("too_large")
	if got := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("too_large")); got < baseline+2 {
		t.Fatalf("expected counter >= %v, got %v", baseline+2, got)
	}

	before := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("unspecified"))
	IncrementUploadRejection("")
	if after := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("unspecified")); after < before+1 {
		t.Fatalf("expected unspecified reason to increment: before=%v after=%v", before, after)
	}
}

func TestPredictRejectionCounted(t *testing.T) {
	before := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("no_file_part"))
	h := NewMux(&mockService{})
	h.ServeHTTP(httptest.NewRecorder(), uploadRequest(t, "nope", "a.png", []byte("x")))
	if after := testutil.ToFloat64(uploadRejectionsTotal.WithLabelValues("no_file_part")); after < before+1 {
		t.Fatalf("rejection not counted: before=%v after=%v", before, after)
	}
}
