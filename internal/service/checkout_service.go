package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/infra/resilience"
	"github.com/inscrevo/checkout-api-go/internal/port"
)

var checkoutTracer = otel.Tracer("checkout-service")

// CheckoutService is the application-facing entry point: validation,
// idempotency, tenant credential resolution and concurrency limiting
// around the orchestrator.
type CheckoutService struct {
	creds      port.CredentialsSource
	orders     port.OrderStore // nil when order write-back is disabled
	orch       *Orchestrator
	calc       *GrossUpCalculator
	gateway    port.PaymentGateway
	credsCache port.Cache[domain.TenantCredentials]
	dedup      port.Cache[struct{}]
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewCheckoutService(
	creds port.CredentialsSource,
	orders port.OrderStore,
	orch *Orchestrator,
	calc *GrossUpCalculator,
	gateway port.PaymentGateway,
	credsCache port.Cache[domain.TenantCredentials],
	dedup port.Cache[struct{}],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		creds:      creds,
		orders:     orders,
		orch:       orch,
		calc:       calc,
		gateway:    gateway,
		credsCache: credsCache,
		dedup:      dedup,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// CreateCheckout runs one full checkout orchestration for a tenant.
func (s *CheckoutService) CreateCheckout(ctx context.Context, in *domain.CheckoutInput) (*domain.CheckoutResult, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.CreateCheckout")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", in.TenantID),
		attribute.String("payment.method", string(in.Method)),
		attribute.Float64("net_amount", in.NetAmount),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_checkout", time.Since(start)) }()

	if err := validateCheckoutInput(in); err != nil {
		return nil, err
	}

	// Idempotency: claim the token before any gateway work so a concurrent
	// repeat is rejected while the first request is still in flight. A
	// failed attempt releases the claim so the caller can retry with the
	// same key.
	if !s.dedup.SetIfAbsent(in.IdempotencyKey, struct{}{}) {
		s.metrics.IncrRequest("duplicate")
		return nil, &domain.ErrDuplicate{Key: in.IdempotencyKey}
	}
	succeeded := false
	defer func() {
		if !succeeded {
			s.dedup.Delete(in.IdempotencyKey)
		}
	}()

	creds, err := s.tenantCredentials(ctx, in.TenantID)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}
	if creds.APIKey == "" {
		s.metrics.IncrRequest("error")
		return nil, &domain.ErrConfig{Field: fmt.Sprintf("gateway api key for tenant %s", in.TenantID)}
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}
	defer s.bulkhead.Release()

	result, err := s.orch.Run(ctx, creds, in)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	succeeded = true
	s.metrics.IncrRequest("success")

	if s.orders != nil && in.OrderID != "" {
		if err := s.orders.AttachPaymentLink(ctx, in.OrderID, result.CheckoutURL); err != nil {
			// The checkout exists either way; the order link is best effort.
			s.logger.Error("failed to attach payment link to order",
				zap.String("order_id", in.OrderID),
				zap.String("tenant_id", in.TenantID),
				zap.Error(err))
		}
	}

	s.logger.Info("checkout created",
		zap.String("tenant_id", in.TenantID),
		zap.String("external_reference", result.ExternalReference),
		zap.Float64("gross", result.Gross),
		zap.Float64("margin", result.Margin),
		zap.String("recovered", result.Recovered),
	)

	return result, nil
}

// Quote computes the gross and margin for a prospective checkout without
// touching the gateway.
func (s *CheckoutService) Quote(ctx context.Context, net float64, method domain.PaymentMethod, installments int) (*domain.GrossUpResult, error) {
	_, span := checkoutTracer.Start(ctx, "CheckoutService.Quote")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("quote", time.Since(start)) }()

	if !method.Valid() {
		return nil, &domain.ErrValidation{Field: "method", Message: "método de pagamento inválido"}
	}
	if installments < 1 {
		installments = 1
	}
	return s.calc.Compute(net, method, installments)
}

// ProbeDependencies checks the record backend and the payment gateway in
// parallel for the readiness endpoint.
func (s *CheckoutService) ProbeDependencies(ctx context.Context) map[string]domain.ServiceHealth {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.ProbeDependencies")
	defer span.End()

	results := make(map[string]domain.ServiceHealth, 2)
	var credsHealth, gatewayHealth domain.ServiceHealth

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st := time.Now()
		_, err := s.creds.GetTenantCredentials(gctx, "healthcheck")
		credsHealth = probeResult(st, err)
		return nil
	})
	g.Go(func() error {
		st := time.Now()
		err := s.gateway.Ping(gctx)
		gatewayHealth = probeResult(st, err)
		return nil
	})
	_ = g.Wait()

	results["credentials_source"] = credsHealth
	results["payment_gateway"] = gatewayHealth
	return results
}

// probeResult folds a probe outcome into a health entry. A not-found for
// the probe tenant still proves the backend answered.
func probeResult(start time.Time, err error) domain.ServiceHealth {
	h := domain.ServiceHealth{
		Status:      "up",
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		if _, ok := err.(*domain.ErrNotFound); !ok {
			h.Status = "down"
			h.Error = err.Error()
		}
	}
	return h
}

func (s *CheckoutService) tenantCredentials(ctx context.Context, tenantID string) (domain.TenantCredentials, error) {
	if cached, ok := s.credsCache.Get(tenantID); ok {
		s.metrics.IncrCacheHit("tenant_credentials")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("tenant_credentials")

	creds, err := s.creds.GetTenantCredentials(ctx, tenantID)
	if err != nil {
		return domain.TenantCredentials{}, err
	}
	s.credsCache.Set(tenantID, *creds)
	return *creds, nil
}

func validateCheckoutInput(in *domain.CheckoutInput) error {
	if in.TenantID == "" {
		return &domain.ErrValidation{Field: "tenantId", Message: "é obrigatório"}
	}
	if in.UserID == "" {
		return &domain.ErrValidation{Field: "userId", Message: "é obrigatório"}
	}
	if in.IdempotencyKey == "" {
		return &domain.ErrValidation{Field: "idempotencyKey", Message: "é obrigatório"}
	}
	if !in.Method.Valid() {
		return &domain.ErrValidation{Field: "method", Message: "método de pagamento inválido"}
	}
	if in.Installments < 1 {
		in.Installments = 1
	}
	if in.Method != domain.MethodCreditCard && in.Installments > 1 {
		return &domain.ErrValidation{Field: "installments", Message: "parcelamento disponível apenas no cartão de crédito"}
	}
	if len(in.Items) == 0 {
		return &domain.ErrValidation{Field: "items", Message: "pelo menos um item é obrigatório"}
	}
	for i, item := range in.Items {
		if item.Name == "" {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].name", i), Message: "é obrigatório"}
		}
		if item.Quantity <= 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].quantity", i), Message: "deve ser maior que zero"}
		}
		if item.UnitValue <= 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].unitValue", i), Message: "deve ser maior que zero"}
		}
	}
	if in.Callbacks.Success == "" {
		return &domain.ErrValidation{Field: "callbacks.success", Message: "é obrigatório"}
	}
	return nil
}
