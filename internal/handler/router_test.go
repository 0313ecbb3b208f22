package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/handler"
	"github.com/inscrevo/checkout-api-go/internal/infra/cache"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/infra/resilience"
	"github.com/inscrevo/checkout-api-go/internal/service"
)

type stubGateway struct {
	resp *domain.GatewayResponse
}

func (s *stubGateway) SubmitCheckout(_ context.Context, _ domain.TenantCredentials, _ *domain.CheckoutPayload) (*domain.GatewayResponse, error) {
	return s.resp, nil
}

func (s *stubGateway) CreateCustomer(_ context.Context, _ domain.TenantCredentials, _ *domain.PayloadCustomer) (*domain.GatewayResponse, error) {
	return &domain.GatewayResponse{Status: 200, Body: []byte(`{"id":"cus_1"}`)}, nil
}

func (s *stubGateway) Ping(_ context.Context) error { return nil }

type stubCreds struct{}

func (stubCreds) GetTenantCredentials(_ context.Context, _ string) (*domain.TenantCredentials, error) {
	return &domain.TenantCredentials{APIKey: "key", DisplayName: "Loja Teste"}, nil
}

func newTestRouter() http.Handler {
	metrics := observability.NewMetrics()
	calc := service.NewGrossUpCalculator(domain.DefaultFeeSchedule(), 0.07)
	builder := service.NewCheckoutBuilder(calc, "wallet-123", 60)
	gw := &stubGateway{resp: &domain.GatewayResponse{
		Status: 200,
		Body:   []byte(`{"id":"chk_1","invoiceUrl":"https://pay.example.com/chk_1"}`),
	}}
	orch := service.NewOrchestrator(gw, builder, service.NewTextClassifier(), metrics, zap.NewNop())
	svc := service.NewCheckoutService(
		stubCreds{},
		nil,
		orch,
		calc,
		gw,
		cache.New[domain.TenantCredentials](time.Minute),
		cache.New[struct{}](time.Minute),
		resilience.NewBulkhead(4),
		metrics,
		zap.NewNop(),
	)
	return handler.NewRouter(svc, metrics, "", zap.NewNop())
}

func checkoutBody(key string) []byte {
	body, _ := json.Marshal(map[string]any{
		"tenantId":       "t1",
		"userId":         "u1",
		"idempotencyKey": key,
		"netAmount":      50,
		"method":         "pix",
		"items": []map[string]any{
			{"name": "Inscrição Congresso", "quantity": 1, "unitValue": 50},
		},
		"customer": map[string]any{
			"name": "Maria Silva", "cpfCnpj": "123.456.789-09", "email": "maria@example.com",
		},
		"callbacks": map[string]any{
			"success": "https://loja.example.com/sucesso",
			"error":   "https://loja.example.com/erro",
		},
	})
	return body
}

func TestPostCheckouts(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(checkoutBody("k1")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.CheckoutURL != "https://pay.example.com/chk_1" {
		t.Errorf("unexpected checkout url %q", resp.CheckoutURL)
	}
	if resp.Gross != 55.49 || resp.Margin != 3.50 {
		t.Errorf("unexpected amounts %+v", resp)
	}
	if resp.ExternalReference != "cliente_t1_usuario_u1" {
		t.Errorf("unexpected reference %q", resp.ExternalReference)
	}
}

func TestPostCheckouts_DuplicateKeyConflicts(t *testing.T) {
	router := newTestRouter()

	first := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(checkoutBody("dup")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(checkoutBody("dup")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestPostCheckouts_IdempotencyKeyHeaderWins(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(checkoutBody("body-key")))
	req.Header.Set("Idempotency-Key", "header-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	// The body key was not consumed, so it still works.
	req = httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(checkoutBody("body-key")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for unused body key, got %d", rec.Code)
	}
}

func TestPostCheckouts_ValidationError(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader([]byte(`{"tenantId":""}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetQuote(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/quote?net=50&method=pix", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.GrossUpResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Gross != 55.49 || resp.Margin != 3.50 {
		t.Errorf("unexpected quote %+v", resp)
	}
}

func TestGetQuote_BadParams(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/quote?net=abc&method=pix", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status domain.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if status.Status != "up" {
		t.Errorf("expected status up, got %q", status.Status)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoints(t *testing.T) {
	router := newTestRouter()

	// Prometheus exposition
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics: expected 200, got %d", rec.Code)
	}

	// JSON snapshot
	req = httptest.NewRequest(http.MethodGet, "/v1/metrics/checkout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/v1/metrics/checkout: expected 200, got %d", rec.Code)
	}
	var snap domain.CheckoutMetricsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Errorf("invalid snapshot JSON: %v", err)
	}
}

func TestServiceAuthMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	calc := service.NewGrossUpCalculator(domain.DefaultFeeSchedule(), 0.07)
	builder := service.NewCheckoutBuilder(calc, "wallet-123", 60)
	gw := &stubGateway{resp: &domain.GatewayResponse{Status: 200, Body: []byte(`{"invoiceUrl":"https://x"}`)}}
	orch := service.NewOrchestrator(gw, builder, service.NewTextClassifier(), metrics, zap.NewNop())
	svc := service.NewCheckoutService(
		stubCreds{}, nil, orch, calc, gw,
		cache.New[domain.TenantCredentials](time.Minute),
		cache.New[struct{}](time.Minute),
		resilience.NewBulkhead(4),
		metrics, zap.NewNop(),
	)
	router := handler.NewRouter(svc, metrics, "test-secret", zap.NewNop())

	// No token: rejected.
	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/quote?net=50&method=pix", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Probes stay open.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected open /healthz, got %d", rec.Code)
	}
}
