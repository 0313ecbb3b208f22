// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the orchestration
// core from concrete gateway and record-backend implementations.
package port

import (
	"context"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// PaymentGateway is the outbound payment gateway surface the orchestrator
// drives. Implementations return the raw response for any HTTP exchange
// that completed, reserving the error for transport failures — response
// classification belongs to the orchestrator, not the client.
type PaymentGateway interface {
	SubmitCheckout(ctx context.Context, creds domain.TenantCredentials, payload *domain.CheckoutPayload) (*domain.GatewayResponse, error)
	CreateCustomer(ctx context.Context, creds domain.TenantCredentials, customer *domain.PayloadCustomer) (*domain.GatewayResponse, error)
	// Ping checks gateway reachability for health probes.
	Ping(ctx context.Context) error
}

// CredentialsSource resolves tenant-scoped gateway credentials from the
// record backend.
type CredentialsSource interface {
	GetTenantCredentials(ctx context.Context, tenantID string) (*domain.TenantCredentials, error)
}

// OrderStore writes the payment link back onto the storefront order after a
// successful orchestration run.
type OrderStore interface {
	AttachPaymentLink(ctx context.Context, orderID, url string) error
}

// Cache provides generic caching with TTL. SetIfAbsent must be atomic with
// respect to concurrent callers of the same key, since the idempotency
// registry uses it as a claim.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	SetIfAbsent(key string, value T) bool
	Delete(key string)
}
