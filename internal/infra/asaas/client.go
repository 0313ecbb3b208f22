// Package asaas is the HTTP client for the payment gateway. It is
// deliberately thin: any completed HTTP exchange comes back as a raw
// status-plus-body response, because the gateway embeds business errors
// in 2xx bodies and the orchestrator owns that classification. Checkout
// submissions are never retried at this layer — a blind resend of a
// non-idempotent POST risks a duplicate charge.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

var tracer = otel.Tracer("asaas")

// Client wraps HTTP calls to the Asaas API using per-tenant credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		logger:     logger,
	}
}

// NormalizeAPIKey ensures the gateway's "$" key prefix. Tenant keys are
// stored both with and without it.
func NormalizeAPIKey(key string) string {
	if key == "" || strings.HasPrefix(key, "$") {
		return key
	}
	return "$" + key
}

// SubmitCheckout posts a checkout payload to the gateway.
func (c *Client) SubmitCheckout(ctx context.Context, creds domain.TenantCredentials, payload *domain.CheckoutPayload) (*domain.GatewayResponse, error) {
	ctx, span := tracer.Start(ctx, "Asaas.SubmitCheckout")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("checkout.value", payload.Value),
		attribute.String("checkout.reference", payload.ExternalReference),
	)

	return c.do(ctx, creds, "/checkouts", payload)
}

// CreateCustomer registers the buyer at the gateway ahead of a checkout
// resubmission.
func (c *Client) CreateCustomer(ctx context.Context, creds domain.TenantCredentials, customer *domain.PayloadCustomer) (*domain.GatewayResponse, error) {
	ctx, span := tracer.Start(ctx, "Asaas.CreateCustomer")
	defer span.End()

	return c.do(ctx, creds, "/customers", customer)
}

// Ping checks gateway reachability. Any HTTP answer counts as reachable;
// only transport failures do not.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Asaas.Ping")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrExternalService{Service: "asaas", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// do executes one authenticated POST inside the circuit breaker and
// captures the reply verbatim. No retries here.
func (c *Client) do(ctx context.Context, creds domain.TenantCredentials, path string, payload any) (*domain.GatewayResponse, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway payload: %w", err)
	}

	// Correlation ID ties gateway log lines to ours across a retry pair.
	correlationID := uuid.NewString()

	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("access-token", NormalizeAPIKey(creds.APIKey))
		req.Header.Set("X-Correlation-ID", correlationID)
		if creds.DisplayName != "" {
			req.Header.Set("User-Agent", creds.DisplayName)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("asaas: request failed",
				zap.String("path", path),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			return nil, err
		}
		defer resp.Body.Close()

		// Read the body first, parse never: bodies here are known to be
		// malformed JSON on some error paths.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}

		c.logger.Debug("asaas: response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)

		return &domain.GatewayResponse{Status: resp.StatusCode, Body: body}, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "asaas"}
		}
		return nil, &domain.ErrExternalService{Service: "asaas", Err: err}
	}

	return result.(*domain.GatewayResponse), nil
}
