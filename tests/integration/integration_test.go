package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/handler"
	"github.com/inscrevo/checkout-api-go/internal/infra/asaas"
	"github.com/inscrevo/checkout-api-go/internal/infra/cache"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/infra/resilience"
	"github.com/inscrevo/checkout-api-go/internal/infra/supabase"
	"github.com/inscrevo/checkout-api-go/internal/service"
)

// TestIntegration_FullFlow spins up mock external services (gateway +
// record backend) and drives a checkout through the full HTTP stack.
func TestIntegration_FullFlow(t *testing.T) {
	var customerCreated atomic.Int32
	var checkoutCalls atomic.Int32
	var orderPatched atomic.Int32

	// --- Mock payment gateway ---
	// First checkout submission: unknown customer embedded in a 200 body.
	// After /customers, the resubmission succeeds.
	gatewayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/checkouts":
			if got := r.Header.Get("access-token"); got != "$tenant-key" {
				t.Errorf("gateway: unexpected access-token %q", got)
			}
			if got := r.Header.Get("User-Agent"); got != "Loja Integração" {
				t.Errorf("gateway: unexpected User-Agent %q", got)
			}
			if checkoutCalls.Add(1) == 1 {
				fmt.Fprint(w, `{"error":"Cliente não encontrado"}`)
				return
			}
			fmt.Fprint(w, `{"id":"chk_int_1","invoiceUrl":"https://pay.example.com/chk_int_1"}`)
		case "/customers":
			customerCreated.Add(1)
			fmt.Fprint(w, `{"id":"cus_int_1"}`)
		default:
			t.Errorf("gateway: unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer gatewayServer.Close()

	// --- Mock Supabase PostgREST ---
	supabaseServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/rest/v1/tenant_gateway_credentials"):
			fmt.Fprint(w, `[{"tenant_id":"t-int","gateway_api_key":"tenant-key","display_name":"Loja Integração"}]`)
		case strings.HasPrefix(r.URL.Path, "/rest/v1/orders"):
			if r.Method != http.MethodPatch {
				t.Errorf("supabase: expected PATCH on orders, got %s", r.Method)
			}
			orderPatched.Add(1)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("supabase: unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer supabaseServer.Close()

	// --- Build the stack ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	httpClient := &http.Client{Timeout: 5 * time.Second}
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}

	gateway := asaas.NewClient(httpClient, gatewayServer.URL, resilience.NewCircuitBreaker("asaas-int"), logger)
	backend := supabase.NewClient(httpClient, supabaseServer.URL, "anon", "service-role", resilience.NewCircuitBreaker("supabase-int"), cfg, logger)

	calc := service.NewGrossUpCalculator(domain.DefaultFeeSchedule(), 0.07)
	builder := service.NewCheckoutBuilder(calc, "wallet-int", 60)
	orch := service.NewOrchestrator(gateway, builder, service.NewTextClassifier(), metrics, logger)
	svc := service.NewCheckoutService(
		backend,
		backend,
		orch,
		calc,
		gateway,
		cache.New[domain.TenantCredentials](time.Minute),
		cache.New[struct{}](time.Minute),
		resilience.NewBulkhead(4),
		metrics,
		logger,
	)
	router := handler.NewRouter(svc, metrics, "", logger)

	// --- Drive the request ---
	body, _ := json.Marshal(map[string]any{
		"tenantId":       "t-int",
		"userId":         "u-int",
		"registrationId": "i-int",
		"orderId":        "order-int",
		"idempotencyKey": "int-key-1",
		"netAmount":      50,
		"method":         "pix",
		"items": []map[string]any{
			{"name": "Inscrição Congresso Integração 2026", "quantity": 1, "unitValue": 50},
		},
		"customer": map[string]any{
			"name": "Maria Silva", "cpfCnpj": "123.456.789-09", "email": "maria@example.com",
		},
		"callbacks": map[string]any{
			"success": "https://loja.example.com/sucesso",
			"error":   "https://loja.example.com/erro",
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.CheckoutResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}

	if result.CheckoutURL != "https://pay.example.com/chk_int_1" {
		t.Errorf("unexpected checkout url %q", result.CheckoutURL)
	}
	if result.Gross != 55.49 || result.Margin != 3.50 {
		t.Errorf("unexpected amounts %+v", result)
	}
	if result.ExternalReference != "cliente_t-int_usuario_u-int_inscricao_i-int" {
		t.Errorf("unexpected reference %q", result.ExternalReference)
	}
	if result.Recovered != "customer_created" {
		t.Errorf("expected customer_created recovery, got %q", result.Recovered)
	}

	if got := checkoutCalls.Load(); got != 2 {
		t.Errorf("expected 2 checkout submissions, got %d", got)
	}
	if got := customerCreated.Load(); got != 1 {
		t.Errorf("expected 1 customer creation, got %d", got)
	}
	if got := orderPatched.Load(); got != 1 {
		t.Errorf("expected 1 order write-back, got %d", got)
	}

	// Same idempotency key again: rejected before any gateway call.
	req = httptest.NewRequest(http.MethodPost, "/v1/checkouts", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate key, got %d", rec.Code)
	}
	if got := checkoutCalls.Load(); got != 2 {
		t.Errorf("duplicate reached the gateway: %d submissions", got)
	}
}

// TestIntegration_SplitRetry verifies the bounded split adjustment against
// a gateway that rejects the first split with a stated maximum.
func TestIntegration_SplitRetry(t *testing.T) {
	var checkoutCalls atomic.Int32
	var lastSplit atomic.Value

	gatewayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/checkouts" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var payload domain.CheckoutPayload
		json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.Splits) > 0 {
			lastSplit.Store(payload.Splits[0].FixedValue)
		}
		if checkoutCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"errors":[{"code":"invalid_split","description":"Divisão R$ 3,50 excede o máximo de R$ 2,00"}]}`)
			return
		}
		fmt.Fprint(w, `{"id":"chk_int_2","checkoutUrl":"https://pay.example.com/chk_int_2"}`)
	}))
	defer gatewayServer.Close()

	supabaseServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"tenant_id":"t-int","gateway_api_key":"$tenant-key","display_name":"Loja Integração"}]`)
	}))
	defer supabaseServer.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	httpClient := &http.Client{Timeout: 5 * time.Second}
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}

	gateway := asaas.NewClient(httpClient, gatewayServer.URL, resilience.NewCircuitBreaker("asaas-int2"), logger)
	backend := supabase.NewClient(httpClient, supabaseServer.URL, "anon", "service-role", resilience.NewCircuitBreaker("supabase-int2"), cfg, logger)

	calc := service.NewGrossUpCalculator(domain.DefaultFeeSchedule(), 0.07)
	builder := service.NewCheckoutBuilder(calc, "wallet-int", 60)
	orch := service.NewOrchestrator(gateway, builder, service.NewTextClassifier(), metrics, logger)
	svc := service.NewCheckoutService(
		backend, nil, orch, calc, gateway,
		cache.New[domain.TenantCredentials](time.Minute),
		cache.New[struct{}](time.Minute),
		resilience.NewBulkhead(4),
		metrics, logger,
	)

	result, err := svc.CreateCheckout(context.Background(), &domain.CheckoutInput{
		TenantID:       "t-int",
		UserID:         "u-int",
		IdempotencyKey: "int-key-2",
		NetAmount:      50,
		Method:         domain.MethodPix,
		Installments:   1,
		Items:          []domain.LineItem{{Name: "Inscrição", Quantity: 1, UnitValue: 50}},
		Customer:       domain.Customer{Name: "Maria", CpfCnpj: "123.456.789-09", Email: "maria@example.com"},
		Callbacks:      domain.CallbackURLs{Success: "https://loja.example.com/sucesso"},
	})
	if err != nil {
		t.Fatalf("expected success after split retry, got %v", err)
	}

	if result.Recovered != "split_adjusted" {
		t.Errorf("expected split_adjusted recovery, got %q", result.Recovered)
	}
	if result.Margin != 1.99 {
		t.Errorf("expected adjusted margin 1.99, got %v", result.Margin)
	}
	if got, _ := lastSplit.Load().(float64); got != 1.99 {
		t.Errorf("expected final split 1.99 on the wire, got %v", got)
	}
	if got := checkoutCalls.Load(); got != 2 {
		t.Errorf("expected exactly 2 submissions, got %d", got)
	}
}
