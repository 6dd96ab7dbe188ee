package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/ids"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

func TestRateLimitExceeded(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limiter := NewRateLimiter(1, 1, false)
	defer limiter.Stop()
	handler := RequestID(limiter.Middleware(base))

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(context.Background()))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first call 200, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(context.Background()))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr2.Code)
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var body map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rate limit body: %v", err)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatalf("expected error message in body")
	}
	if rid, _ := body["request_id"].(string); rid != rr2.Header().Get(requestIDHeader) {
		t.Fatalf("expected request_id %q in body, got %q", rr2.Header().Get(requestIDHeader), rid)
	}

	other := req.Clone(context.Background())
	other.RemoteAddr = "10.0.0.2:1234"
	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, other)
	if rr3.Code != http.StatusOK {
		t.Fatalf("expected separate bucket per client, got %d", rr3.Code)
	}
}

func TestRateLimitIgnoresForwardedForUnlessTrusted(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limiter := NewRateLimiter(1, 1, false)
	defer limiter.Stop()
	handler := limiter.Middleware(base)

	for i, xff := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "3.3.3.3, 10.0.0.1")
	if got := clientIP(req, true); got != "3.3.3.3" {
		t.Fatalf("expected forwarded client ip, got %q", got)
	}
	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Fatalf("expected remote addr, got %q", got)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	limiter := NewRateLimiter(1, 1, false)
	limiter.Stop()
	limiter.Stop()
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	incoming := ids.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, incoming)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != incoming || rr.Header().Get(requestIDHeader) != incoming {
		t.Fatalf("expected incoming id to be reused, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen == "<script>" || !ids.Valid(seen) {
		t.Fatalf("expected malformed id to be replaced, got %q", seen)
	}
}

func TestLoggingJSONEmitsStructuredEntry(t *testing.T) {
	logger := obs.Logger()
	origWriter := logger.Writer()
	logger.SetFlags(0)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(origWriter)

	handler := RequestID(LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/log-test", nil)
	req.Header.Set("User-Agent", "middleware-test")
	req.RemoteAddr = "127.0.0.1:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(context.Background()))

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "request_id", "method", "path", "status", "duration_ms"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in log entry", key)
		}
	}
	if entry["msg"] != "request_complete" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status: %v", entry["status"])
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS(next, []string{"https://portal.example.com"})

	cases := []struct {
		origin string
		allow  bool
	}{
		{"https://portal.example.com", true},
		{"https://evil.example.com", false},
		{"http://localhost:3000", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
		req.Header.Set("Origin", tc.origin)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		got := rr.Header().Get("Access-Control-Allow-Origin")
		if tc.allow && got != tc.origin {
			t.Fatalf("origin %s: expected allow, got %q", tc.origin, got)
		}
		if !tc.allow && got != "" {
			t.Fatalf("origin %s: expected deny, got %q", tc.origin, got)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/apps", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	CORS(next, nil).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatal("expected localhost to be allowed without configuration")
	}
}

func TestMaxBodyBytesRejectsLargeJSON(t *testing.T) {
	handler := RequestID(MaxBodyBytes(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), 16))

	body := strings.NewReader(`{"email":"` + strings.Repeat("a", 64) + `@x.com"}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login", body))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

type stubAuth struct {
	AuthService
	identity auth.Identity
	err      error
}

func (s stubAuth) Authenticate(context.Context, string) (auth.Identity, error) {
	return s.identity, s.err
}

func TestWithAdmin(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	cases := []struct {
		name   string
		header string
		stub   stubAuth
		want   int
	}{
		{"admin", "Bearer t", stubAuth{identity: auth.Identity{UserID: 1, OrgID: 1, RoleID: auth.RoleAdmin}}, http.StatusOK},
		{"member", "Bearer t", stubAuth{identity: auth.Identity{UserID: 2, OrgID: 1, RoleID: auth.RoleMember}}, http.StatusForbidden},
		{"invalid token", "Bearer t", stubAuth{err: auth.ErrInvalidToken}, http.StatusUnauthorized},
		{"missing header", "", stubAuth{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubAuth{}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &API{auth: tc.stub}
			req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			api.withAdmin(ok).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if tc.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate header")
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	if tok, err := extractBearerToken("bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("expected case-insensitive scheme, got %q %v", tok, err)
	}
	for _, header := range []string{"", "Bearer", "Bearer   ", "Token abc"} {
		if _, err := extractBearerToken(header); err == nil {
			t.Fatalf("expected error for %q", header)
		}
	}
}
