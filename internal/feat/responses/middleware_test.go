package responses

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRateLimitsPerAddress(t *testing.T) {
	g := NewGuard(config.ResponsesConfig{RateLimit: 1, Burst: 2}, logger.NewNoopLogger())
	h := g.Middleware(okHandler())

	send := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = ip + ":1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("over-limit status = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other address status = %d, want 200", code)
	}
}

func TestGuardCORSOnlyIsNotRateLimited(t *testing.T) {
	g := NewGuard(config.ResponsesConfig{RateLimit: 1, Burst: 1}, logger.NewNoopLogger())
	h := g.CORS(okHandler())

	for i := 0; i < 10; i++ {
		r := httptest.NewRequest(http.MethodPut, "/", nil)
		r.RemoteAddr = "10.0.0.1:1000"
		r.Header.Set("Origin", "https://site.test")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "https://site.test" {
			t.Fatalf("request %d missing CORS header", i)
		}
	}
	if len(g.limiters) != 0 {
		t.Errorf("CORS-only requests created %d limiters", len(g.limiters))
	}
}

func TestGuardSweepDropsIdleLimiters(t *testing.T) {
	g := NewGuard(config.ResponsesConfig{}, logger.NewNoopLogger())
	g.allow("10.0.0.1")

	g.sweep(time.Now())
	if len(g.limiters) != 1 {
		t.Fatalf("fresh limiter swept")
	}
	g.sweep(time.Now().Add(time.Hour))
	if len(g.limiters) != 0 {
		t.Errorf("idle limiter kept")
	}
}

func TestGuardCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantHeader string
	}{
		{"no config allows any", nil, "https://site.test", "https://site.test"},
		{"listed origin", []string{"https://site.test"}, "https://SITE.test", "https://SITE.test"},
		{"wildcard", []string{"*"}, "https://x.test", "https://x.test"},
		{"unlisted origin", []string{"https://site.test"}, "https://evil.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(config.ResponsesConfig{AllowedOrigins: tt.allowed}, logger.NewNoopLogger())
			r := httptest.NewRequest(http.MethodOptions, "/", nil)
			r.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			g.Middleware(okHandler()).ServeHTTP(w, r)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want 204", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestAnonymizer(t *testing.T) {
	a := NewAnonymizer("salt")
	h1 := a.Hash("203.0.113.7")

	if len(h1) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(h1))
	}
	if h1 != a.Hash("203.0.113.7") {
		t.Error("digest is not stable")
	}
	if h1 == NewAnonymizer("other").Hash("203.0.113.7") {
		t.Error("salt does not change the digest")
	}
	if a.Hash("") != "" {
		t.Error("empty address should stay empty")
	}
	if got := NewAnonymizer(strings.Repeat("k", 100)).Hash("x"); len(got) != 64 {
		t.Errorf("long salt digest = %q", got)
	}
}

func TestMetadataReader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	r.Header.Set("User-Agent", "test-agent")
	r.Header.Set("Referer", "https://ref.test/page")

	raw := NewMetadataReader(config.ResponsesConfig{}, logger.NewNoopLogger()).Read(r, Metadata{})
	if raw.IPAddress != "198.51.100.4" || raw.UserAgent != "test-agent" || raw.Referrer != "https://ref.test/page" {
		t.Errorf("raw metadata = %+v", raw)
	}

	hashed := NewMetadataReader(config.ResponsesConfig{AnonymizeIP: true, IPSalt: "s"}, logger.NewNoopLogger()).Read(r, Metadata{Referrer: "kept"})
	if hashed.IPAddress == "198.51.100.4" || hashed.IPAddress != NewAnonymizer("s").Hash("198.51.100.4") {
		t.Errorf("address not anonymized: %q", hashed.IPAddress)
	}
	if hashed.Referrer != "kept" {
		t.Errorf("referrer = %q, want kept", hashed.Referrer)
	}
}

func TestMetadataReaderWarnsWithoutSalt(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("info", "text", &buf)

	NewMetadataReader(config.ResponsesConfig{AnonymizeIP: true, IPSalt: "s"}, log)
	if buf.Len() != 0 {
		t.Errorf("salted reader logged %q", buf.String())
	}

	NewMetadataReader(config.ResponsesConfig{AnonymizeIP: true}, log)
	if !strings.Contains(buf.String(), "ip_salt") {
		t.Errorf("missing unkeyed digest warning, log = %q", buf.String())
	}
}
