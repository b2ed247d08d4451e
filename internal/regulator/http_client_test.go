package regulator_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/regulator"
)

func newClient(t *testing.T, baseURL string) *regulator.HTTPClient {
	t.Helper()
	c, err := regulator.NewHTTPClient("cftc", regulator.Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewHTTPClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  regulator.Config
	}{
		{"missing base url", regulator.Config{APIKey: "k"}},
		{"missing credentials", regulator.Config{BaseURL: "https://api.example.com"}},
		{"broken client cert", regulator.Config{
			BaseURL:        "https://api.example.com",
			ClientCertPath: "/nonexistent/cert.pem",
			ClientKeyPath:  "/nonexistent/key.pem",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := regulator.NewHTTPClient("cftc", tt.cfg, zap.NewNop()); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestSubmitSendsEnvelopeAndHeaders(t *testing.T) {
	var gotPath, gotKey, gotIdem string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		gotIdem = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(regulator.Response{
			Status:             "accepted",
			ConfirmationNumber: "CFTC-12345",
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	resp, err := c.Submit(context.Background(), domain.Filing{Type: domain.FilingForm102}, "sub-42")
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	if resp.Status != "accepted" || resp.ConfirmationNumber != "CFTC-12345" {
		t.Fatalf("response = %+v", resp)
	}
	if gotPath != "/submissions" {
		t.Fatalf("path = %q, want /submissions", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotIdem != "sub-42" {
		t.Fatalf("idempotency key = %q, want the submission id", gotIdem)
	}
	if gotBody["submission_id"] != "sub-42" {
		t.Fatalf("body submission_id = %v", gotBody["submission_id"])
	}
}

func TestSubmitThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Submit(context.Background(), domain.Filing{}, "sub-1")

	var tErr *regulator.ThrottleError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want ThrottleError", err)
	}
	if tErr.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %v, want 7s", tErr.RetryAfter)
	}
}

func TestSubmitThrottledWithoutHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Submit(context.Background(), domain.Filing{}, "sub-1")

	var tErr *regulator.ThrottleError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want ThrottleError", err)
	}
	if tErr.RetryAfter != 5*time.Second {
		t.Fatalf("RetryAfter = %v, want default 5s", tErr.RetryAfter)
	}
}

func TestSubmitServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Submit(context.Background(), domain.Filing{}, "sub-1")
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "maintenance window") {
		t.Fatalf("err = %v, want status code and body snippet", err)
	}
}

func TestCheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions/sub-9/status" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(regulator.Status{SubmissionID: "sub-9", Status: "confirmed"})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	st, err := c.CheckStatus(context.Background(), "sub-9")
	if err != nil {
		t.Fatalf("CheckStatus() = %v", err)
	}
	if st.Status != "confirmed" {
		t.Fatalf("status = %q, want confirmed", st.Status)
	}
}

func TestSubmitMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	if _, err := c.Submit(context.Background(), domain.Filing{}, "sub-1"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
