package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.CheckoutService, metrics *observability.Metrics, serviceTokenSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(ServiceAuthMiddleware(serviceTokenSecret, logger))

		// Checkout
		r.Post("/checkouts", createCheckoutHandler(svc, logger))
		r.Get("/checkouts/quote", quoteHandler(svc, logger))

		// Métricas
		r.Get("/metrics/checkout", checkoutMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// POST /v1/checkouts
// ============================================================

// createCheckoutRequest is the inbound contract for a checkout.
type createCheckoutRequest struct {
	TenantID       string               `json:"tenantId"`
	UserID         string               `json:"userId"`
	RegistrationID string               `json:"registrationId,omitempty"`
	OrderID        string               `json:"orderId,omitempty"`
	IdempotencyKey string               `json:"idempotencyKey"`
	NetAmount      float64              `json:"netAmount"`
	Method         domain.PaymentMethod `json:"method"`
	Installments   int                  `json:"installments"`
	Items          []domain.LineItem    `json:"items"`
	Customer       domain.Customer      `json:"customer"`
	Callbacks      domain.CallbackURLs  `json:"callbacks"`
}

func createCheckoutHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkouts")
		defer span.End()

		var req createCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		// Idempotency-Key header wins over the body field when both are set.
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			req.IdempotencyKey = key
		}

		in := &domain.CheckoutInput{
			TenantID:       req.TenantID,
			UserID:         req.UserID,
			RegistrationID: req.RegistrationID,
			OrderID:        req.OrderID,
			IdempotencyKey: req.IdempotencyKey,
			NetAmount:      req.NetAmount,
			Method:         req.Method,
			Installments:   req.Installments,
			Items:          req.Items,
			Customer:       req.Customer,
			Callbacks:      req.Callbacks,
		}

		result, err := svc.CreateCheckout(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

// ============================================================
// GET /v1/checkouts/quote
// ============================================================

func quoteHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/checkouts/quote")
		defer span.End()

		net, err := strconv.ParseFloat(r.URL.Query().Get("net"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parâmetro 'net' inválido")
			return
		}
		method := domain.PaymentMethod(r.URL.Query().Get("method"))
		installments := 1
		if v := r.URL.Query().Get("installments"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				installments = n
			}
		}

		result, err := svc.Quote(ctx, net, method, installments)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// Métricas — GET /v1/metrics/checkout
// ============================================================

func checkoutMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCheckoutSnapshot())
	}
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "checkout-api", Status: "up", LatencyMs: 0, LastChecked: now},
		}

		for name, probe := range svc.ProbeDependencies(r.Context()) {
			probe.Name = name
			services = append(services, probe)
		}

		overall := "up"
		for _, s := range services {
			if s.Status == "down" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
