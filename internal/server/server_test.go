package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/engine"
	"github.com/quantenergx/filing-gateway/internal/regulator"
	retrypolicy "github.com/quantenergx/filing-gateway/internal/retry"
	"github.com/quantenergx/filing-gateway/internal/server"
)

// stubValidator подменяет проверку RS256: токен — это имя пользователя
type stubValidator struct {
	scopes map[string]bool
}

func (v *stubValidator) VerifyToken(tokenStr string) (*domain.CustomClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	return &domain.CustomClaims{UserID: "trader-1", Scopes: v.scopes}, nil
}

func fastPolicy() retrypolicy.Policy {
	return retrypolicy.Policy{
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func newTestServer(scopes map[string]bool) (*server.GatewayServer, *audit.Ledger) {
	ledger := audit.NewLedger("op-secret", zap.NewNop())
	eng := engine.NewEngine(
		[]engine.Regulator{{Name: "CFTC", Region: "US", Client: &regulator.Mock{}}},
		fastPolicy(),
		engine.DefaultReliabilitySettings(),
		ledger,
		nil,
		nil,
		engine.NewMetrics(nil),
		zap.NewNop(),
	)
	return server.NewGatewayServer(zap.NewNop(), eng, &stubValidator{scopes: scopes}, nil), ledger
}

func validFilingJSON(t *testing.T) []byte {
	t.Helper()
	future := time.Now().AddDate(0, 6, 0)
	f := domain.Filing{
		Type: domain.FilingForm102,
		Institution: domain.Institution{
			Name:  "Meridian Energy Trading LLC",
			LEI:   "RTGCASQGPKQY34HHGR21",
			Email: "compliance@meridian-energy.example",
			Phone: "+13125550142",
		},
		Period:        "2026-Q2",
		ReportingDate: time.Now().AddDate(0, 0, -1),
		LineItems: []domain.LineItem{
			{Commodity: domain.CommodityCrudeOil, ContractMonth: "Z26", Currency: "USD", Long: 600, Short: 300, MaturityDate: future},
			{Commodity: domain.CommodityNaturalGas, ContractMonth: "H27", Currency: "USD", Long: 400, Short: 200, MaturityDate: future},
		},
		Summary: domain.FilingSummary{TotalLong: 1000, TotalShort: 500},
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func doRequest(s http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpoint(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeFilingsSubmit: true})

	rec := doRequest(s, http.MethodPost, "/v1/filings/CFTC", "tok", validFilingJSON(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var res domain.SubmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != domain.StatusAccepted || res.SubmissionID == "" {
		t.Fatalf("result = %+v, want accepted with submission id", res)
	}
}

func TestSubmitEndpointInvalidFiling(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeFilingsSubmit: true})

	var f domain.Filing
	if err := json.Unmarshal(validFilingJSON(t), &f); err != nil {
		t.Fatal(err)
	}
	f.Summary.TotalLong = 900
	body, _ := json.Marshal(f)

	rec := doRequest(s, http.MethodPost, "/v1/filings/CFTC", "tok", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSubmitEndpointRequiresToken(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeFilingsSubmit: true})

	rec := doRequest(s, http.MethodPost, "/v1/filings/CFTC", "", validFilingJSON(t))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSubmitEndpointRequiresScope(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeAuditRead: true})

	rec := doRequest(s, http.MethodPost, "/v1/filings/CFTC", "tok", validFilingJSON(t))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAuditEndpoints(t *testing.T) {
	s, ledger := newTestServer(map[string]bool{
		server.ScopeFilingsSubmit: true,
		server.ScopeAuditRead:     true,
		server.ScopeAuditAdmin:    true,
	})

	if rec := doRequest(s, http.MethodPost, "/v1/filings/CFTC", "tok", validFilingJSON(t)); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/v1/audit?user_id=trader-1", "tok", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d", rec.Code)
	}
	var entries []audit.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("entries = %d, want started and completed", len(entries))
	}

	// Неверный операционный токен: 403 и лог нетронут
	body, _ := json.Marshal(map[string]string{"admin_token": "wrong"})
	if rec := doRequest(s, http.MethodPost, "/v1/audit/clear", "tok", body); rec.Code != http.StatusForbidden {
		t.Fatalf("clear with wrong token status = %d, want 403", rec.Code)
	}
	if ledger.Size() < 2 {
		t.Fatal("failed clear must not touch the log")
	}

	body, _ = json.Marshal(map[string]string{"admin_token": "op-secret"})
	if rec := doRequest(s, http.MethodPost, "/v1/audit/clear", "tok", body); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", rec.Code)
	}
	if ledger.Size() != 1 {
		t.Fatalf("log size after clear = %d, want exactly the clear marker", ledger.Size())
	}
}

func TestAuditDateFilterRejectsGarbage(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeAuditRead: true})

	rec := doRequest(s, http.MethodGet, "/v1/audit?from=yesterday", "tok", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(map[string]bool{})

	if rec := doRequest(s, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d, want 200", rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/v1/health", "tok", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detailed health status = %d, want 200", rec.Code)
	}
	var h domain.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatal(err)
	}
	if !h.Regulators["CFTC"] {
		t.Fatalf("health = %+v, want CFTC configured", h)
	}
}

func TestStatusEndpointRequiresRegulatorParam(t *testing.T) {
	s, _ := newTestServer(map[string]bool{server.ScopeFilingsSubmit: true})

	rec := doRequest(s, http.MethodGet, "/v1/submissions/sub-1/status", "tok", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
