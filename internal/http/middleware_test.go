package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	logger := zap.NewNop()
	var gotCtxID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := r.Context().Value("correlation_id").(string); ok {
			gotCtxID = v
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(logger)(inner).ServeHTTP(w, req)

	headerID := w.Header().Get("X-Correlation-ID")
	if headerID == "" {
		t.Error("X-Correlation-ID response header not set")
	}
	if gotCtxID != headerID {
		t.Errorf("context correlation_id = %q, want response header value %q", gotCtxID, headerID)
	}
}

func TestCorrelationIDMiddleware_ReusesCallerID(t *testing.T) {
	logger := zap.NewNop()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied")
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(logger)(inner).ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "caller-supplied" {
		t.Errorf("X-Correlation-ID = %q, want caller-supplied", got)
	}
}

func TestCorrelationIDMiddleware_StoresRequestLogger(t *testing.T) {
	logger := zap.NewNop()
	var hasLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasLogger = r.Context().Value("logger").(*zap.Logger)
	})

	req := httptest.NewRequest("GET", "/health", nil)
	CorrelationIDMiddleware(logger)(inner).ServeHTTP(httptest.NewRecorder(), req)

	if !hasLogger {
		t.Error("request-scoped logger not stored in context")
	}
}

func TestRateLimitMiddleware_DeniesWhenExhausted(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(limiter)(inner)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/api/weather", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/api/weather", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(nil)(inner)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/weather", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var gotErr error
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			gotErr = r.Context().Err()
		case <-time.After(2 * time.Second):
		}
	})

	req := httptest.NewRequest("GET", "/api/weather", nil)
	TimeoutMiddleware(10 * time.Millisecond)(inner).ServeHTTP(httptest.NewRecorder(), req)

	if gotErr != context.DeadlineExceeded {
		t.Errorf("context error = %v, want DeadlineExceeded", gotErr)
	}
}

func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/weather", "/api/weather"},
		{"/", "/static"},
		{"/static/app.js", "/static"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.path, nil)
		if got := getRoute(r); got != tt.want {
			t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsMiddleware_TracksInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.PathPrefix("/").Handler(inner)

	before := InFlightCount()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
		close(done)
	}()

	<-entered
	if got := InFlightCount(); got != before+1 {
		t.Errorf("InFlightCount during request = %d, want %d", got, before+1)
	}
	close(release)
	<-done
	if got := InFlightCount(); got != before {
		t.Errorf("InFlightCount after request = %d, want %d", got, before)
	}
}
