package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/discover", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/discover/popular", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Post("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	return r
}

func serve(r http.Handler, method, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
}

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method, path, status string
	}{
		{"GET", "/discover", "200"},
		{"GET", "/discover/popular", "503"},
		{"POST", "/metrics", "400"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			c := httpRequestsTotal.WithLabelValues(tt.method, tt.path, tt.status)
			before := testutil.ToFloat64(c)
			serve(r, tt.method, tt.path)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("requests_total delta = %f, want 1", got)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected latency observations")
	}
}

// Implicit 200s come from handlers that only call Write.
func TestMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(http.ResponseWriter, *http.Request) {})

	c := httpRequestsTotal.WithLabelValues("GET", "/health", "200")
	before := testutil.ToFloat64(c)
	serve(r, "GET", "/health")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("requests_total delta = %f, want 1", got)
	}
}

func TestMiddleware_QueryDoesNotLeakIntoLabels(t *testing.T) {
	r := newRouter()
	c := httpRequestsTotal.WithLabelValues("GET", "/discover", "200")
	before := testutil.ToFloat64(c)

	serve(r, "GET", "/discover?view=list&search=jazz")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("requests_total delta = %f, want 1", got)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := newRouter()
	c := httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	before := testutil.ToFloat64(c)

	serve(r, "GET", "/no/such/route/12345")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("unmatched delta = %f, want 1", got)
	}
}

func TestMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/discover", func(w http.ResponseWriter, _ *http.Request) {
		if got := testutil.ToFloat64(httpRequestsInFlight); got < 1 {
			t.Errorf("in-flight during request = %f, want >= 1", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	serve(r, "GET", "/discover")

	if got := testutil.ToFloat64(httpRequestsInFlight); got != 0 {
		t.Errorf("in-flight after request = %f, want 0", got)
	}
}
