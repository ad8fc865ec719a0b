package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/geofeed/internal/logger"
)

func TestJSONRecoverer_WritesInternalError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := jsonRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/discover", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "internal_error" {
		t.Errorf("body = %v", body)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("expected one panic log, got %v", logs.All())
	}
}

func TestJSONRecoverer_ReraisesAbort(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler { //nolint:errorlint // identity check
			t.Fatalf("recovered %v, want http.ErrAbortHandler", rvr)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))
}

func TestWideEvent_LogsOncePerRequest(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"client error", http.StatusUnauthorized, zapcore.WarnLevel},
		{"upstream", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			var sawLogger bool
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logpkg.FromContext(r.Context()).Debug("inside")
				sawLogger = true
				w.WriteHeader(tt.status)
			})
			h := chiMiddleware.RequestID(wideEventMiddleware(zap.New(core))(inner))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("GET", "/discover?view=list", http.NoBody))

			if !sawLogger || rr.Header().Get("X-Request-ID") == "" {
				t.Fatalf("request id header = %q", rr.Header().Get("X-Request-ID"))
			}
			if logs.FilterMessage("inside").Len() != 1 {
				t.Error("handler did not get the request logger")
			}
			events := logs.FilterMessage("http_request").All()
			if len(events) != 1 {
				t.Fatalf("expected one summary line, got %d", len(events))
			}
			if events[0].Level != tt.level {
				t.Errorf("level = %v, want %v", events[0].Level, tt.level)
			}
			fields := events[0].ContextMap()
			if fields["status"] != int64(tt.status) || fields["query"] != "view=list" {
				t.Errorf("fields = %v", fields)
			}
			if fields["request_id"] == "" {
				t.Error("summary line lacks request_id")
			}
		})
	}
}
