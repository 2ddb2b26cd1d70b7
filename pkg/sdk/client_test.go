package propmatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_NoBaseURL(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error when no base URL provided")
	}
}

func TestNew_RejectsNonHTTPScheme(t *testing.T) {
	_, err := New("redis://localhost:6379")
	if err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithAPIKey("secret").apply(cfg)
	if cfg.apiKey != "secret" {
		t.Errorf("apiKey = %q, want secret", cfg.apiKey)
	}

	WithTimeout(5 * time.Second).apply(cfg)
	if cfg.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.timeout)
	}

	WithUserAgent("custom/1.0").apply(cfg)
	if cfg.userAgent != "custom/1.0" {
		t.Errorf("userAgent = %q, want custom/1.0", cfg.userAgent)
	}

	httpc := &http.Client{}
	WithHTTPClient(httpc).apply(cfg)
	if cfg.httpc != httpc {
		t.Error("http client not applied")
	}

	// Nil and empty values must not clobber earlier settings.
	WithHTTPClient(nil).apply(cfg)
	if cfg.httpc != httpc {
		t.Error("nil http client clobbered the configured one")
	}
	WithUserAgent("").apply(cfg)
	if cfg.userAgent != "custom/1.0" {
		t.Error("empty user agent clobbered the configured one")
	}
}

func TestClient_SendsAuthAndUserAgent(t *testing.T) {
	var gotAuth, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","checks":{}}`))
	}, WithAPIKey("sk-test"))

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, defaultUserAgent)
	}
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"status":"ok","checks":{}}`))
	})

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestAPIError_DecodedFromBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"retrieval_unavailable","message":"retrieval unavailable"}`))
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "house"})
	if err == nil {
		t.Fatal("expected error")
	}

	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if ae.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", ae.Status)
	}
	if ae.Code != CodeRetrievalUnavailable {
		t.Errorf("code = %q, want %q", ae.Code, CodeRetrievalUnavailable)
	}
	if !IsRetrievalUnavailable(err) {
		t.Error("IsRetrievalUnavailable must match")
	}
	if IsNotFound(err) {
		t.Error("IsNotFound must not match")
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded\n")
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "house"})
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if ae.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", ae.Status)
	}
	if ae.Message != "upstream exploded" {
		t.Errorf("message = %q, want the raw body", ae.Message)
	}
}

func TestAPIError_ErrorString(t *testing.T) {
	withCode := &APIError{Status: 404, Code: CodeListingNotFound, Message: "listing not found"}
	if !strings.Contains(withCode.Error(), "listing_not_found") {
		t.Errorf("error string %q should carry the code", withCode.Error())
	}
	bare := &APIError{Status: 500, Message: "boom"}
	if !strings.Contains(bare.Error(), "status 500") {
		t.Errorf("error string %q should carry the status", bare.Error())
	}
}

func TestIsHelpers_IgnorePlainErrors(t *testing.T) {
	err := errors.New("not an api error")
	if IsNotFound(err) || IsUnauthorized(err) || IsRateLimited(err) ||
		IsBudgetExhausted(err) || IsRetrievalUnavailable(err) {
		t.Error("helpers must not match plain errors")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "propmatch_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("propmatch_sdk_operations_total not found")
	}
}

func TestObserver_RegisterTwiceReuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second newObserver must reuse collectors: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
