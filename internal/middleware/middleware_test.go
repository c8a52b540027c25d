package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/templui/photowall/internal/ctxkeys"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "first,second,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	h := RateLimit(2, time.Minute, false)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	do := func(addr, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", nil)
		req.RemoteAddr = addr
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	for i := range 2 {
		if code := do("10.0.0.1:5000", ""); code != http.StatusCreated {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code := do("10.0.0.1:5001", ""); code != http.StatusTooManyRequests {
		t.Errorf("third request: status %d, want 429", code)
	}
	// Forwarding headers are ignored without a trusted proxy.
	if code := do("10.0.0.1:5002", "203.0.113.9"); code != http.StatusTooManyRequests {
		t.Errorf("spoofed request: status %d, want 429", code)
	}
	if code := do("10.0.0.2:5000", ""); code != http.StatusCreated {
		t.Errorf("other ip: status %d", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, time.Minute, false)(func(w http.ResponseWriter, r *http.Request) {})
	for range 10 {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	if got := clientIP(req, false); got != "192.0.2.1" {
		t.Errorf("untrusted = %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.5" {
		t.Errorf("trusted = %q", got)
	}
}

func TestRequireModerator(t *testing.T) {
	var actor string
	h := RequireModerator("s3cret")(func(w http.ResponseWriter, r *http.Request) {
		actor = ctxkeys.Moderator(r.Context())
	})

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   int
		actor  string
	}{
		{"missing", "/api/photos/pending", nil, http.StatusUnauthorized, ""},
		{"wrong", "/api/photos/pending", map[string]string{ModeratorPasswordHeader: "nope"}, http.StatusUnauthorized, ""},
		{"header", "/api/photos/pending", map[string]string{ModeratorPasswordHeader: "s3cret"}, http.StatusOK, "moderator"},
		{"query", "/api/photos/pending?password=s3cret", nil, http.StatusOK, "moderator"},
		{"named", "/api/photos/pending", map[string]string{ModeratorPasswordHeader: "s3cret", ModeratorNameHeader: "ana"}, http.StatusOK, "ana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if actor != tt.actor {
				t.Errorf("actor = %q, want %q", actor, tt.actor)
			}
		})
	}
}

func TestRequestIDAndLogging(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, RequestLogging)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/photos", nil))

	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("request id = %q, header = %q", seen, rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "upstream-1" {
		t.Errorf("upstream id not reused: %q", seen)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/photos/moderate", nil)
		req.Header.Set("Origin", "https://wall.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "content-type, x-moderation-password")
		rec := httptest.NewRecorder()
		CORS([]string{"https://wall.example"})(next).ServeHTTP(rec, req)

		if rec.Code == http.StatusTeapot {
			t.Fatal("preflight reached the route")
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://wall.example" {
			t.Errorf("allow origin = %q", got)
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), ModeratorPasswordHeader) {
			t.Errorf("allow headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
		}
		if got := rec.Header().Get("Access-Control-Max-Age"); got != "86400" {
			t.Errorf("max age = %q", got)
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		CORS([]string{"https://wall.example"})(next).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("allow origin = %q, want empty", got)
		}
		if rec.Code != http.StatusTeapot {
			t.Errorf("request did not reach the route: %d", rec.Code)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("allow origin = %q", got)
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range") {
			t.Errorf("expose headers = %q", rec.Header().Get("Access-Control-Expose-Headers"))
		}
	})
}
