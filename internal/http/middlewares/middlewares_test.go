package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryLimitStore_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryLimitStore()
	s.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		count, resetIn, err := s.Hit(context.Background(), "k", time.Minute)
		if err != nil || count != i || resetIn != time.Minute {
			t.Fatalf("hit %d: got count=%d resetIn=%v err=%v", i, count, resetIn, err)
		}
	}

	now = now.Add(30 * time.Second)
	if _, resetIn, _ := s.Hit(context.Background(), "k", time.Minute); resetIn != 30*time.Second {
		t.Fatalf("expected 30s left in window, got %v", resetIn)
	}

	now = now.Add(31 * time.Second)
	if count, _, _ := s.Hit(context.Background(), "k", time.Minute); count != 1 {
		t.Fatalf("expected a fresh window, got count %d", count)
	}

	if count, _, _ := s.Hit(context.Background(), "other", time.Minute); count != 1 {
		t.Fatalf("keys must be independent, got %d", count)
	}
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func limitedRouter(store LimitStore, limit int) *gin.Engine {
	rl := NewRateLimiter("test", "Slow down", limit, time.Minute, store, discardLogger(), nil)

	r := gin.New()
	r.Use(ErrorHandler(discardLogger(), nil, true))
	r.GET("/", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	r := limitedRouter(nil, 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	var body errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Message != "Slow down" {
		t.Fatalf("expected the limiter's own message, got %s", w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After")
	}

	// a different client is counted separately
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	r := limitedRouter(failingStore{}, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected store failure to let request through, got %d", i+1, w.Code)
		}
	}
}

func TestErrorHandler_Envelope(t *testing.T) {
	tests := []struct {
		name      string
		prod      bool
		err       error
		status    int
		message   string
		wantStack bool
	}{
		{"validation outside prod", false, apperr.Validation([]apperr.FieldError{{Field: "rating", Rule: "min", Message: "must be at least 1"}}), http.StatusBadRequest, "rating must be at least 1", true},
		{"forbidden in prod", true, apperr.New(apperr.KindForbidden, "Access denied. Teachers only."), http.StatusForbidden, "Access denied. Teachers only.", false},
		{"unknown error is internal", true, errors.New("boom"), http.StatusInternalServerError, "Internal Server Error", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID())
			r.Use(ErrorHandler(discardLogger(), nil, tc.prod))
			r.GET("/", func(c *gin.Context) { Fail(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}

			var body errorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != "error" || body.Message != tc.message {
				t.Fatalf("unexpected envelope %+v", body)
			}
			if (body.Stack != "") != tc.wantStack {
				t.Fatalf("stack presence = %v, want %v", body.Stack != "", tc.wantStack)
			}
			if body.RequestID == "" || body.RequestID != w.Header().Get("X-Request-Id") {
				t.Fatalf("expected request id in envelope and header, got %q / %q", body.RequestID, w.Header().Get("X-Request-Id"))
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://allowed.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://allowed.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://allowed.example" {
		t.Fatalf("expected allowed origin to be echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS header for disallowed origin")
	}

	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("unexpected credentials for disallowed origin")
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", w.Code)
	}
}

func TestCORS_WildcardNeverAllowsCredentials(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"*", "https://allowed.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		origin      string
		wantOrigin  string
		credentials bool
	}{
		{"https://attacker.example", "*", false},
		{"https://sub.school.test", "*", false},
		{"https://allowed.example", "https://allowed.example", true},
	}

	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("Allow-Origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tc.credentials {
				t.Fatalf("Allow-Credentials = %v, want %v", got, tc.credentials)
			}
		})
	}
}

func TestSecurityHeaders_HSTSOnlyInProd(t *testing.T) {
	for _, prod := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(prod))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if got := w.Header().Get("Strict-Transport-Security") != ""; got != prod {
			t.Fatalf("prod=%v: HSTS present=%v", prod, got)
		}
	}
}
