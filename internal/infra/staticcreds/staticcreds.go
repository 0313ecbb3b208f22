// Package staticcreds is the single-tenant fallback credentials source,
// used when no record backend is configured (local development).
package staticcreds

import (
	"context"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// Source returns the same gateway credentials for every tenant.
type Source struct {
	apiKey      string
	displayName string
}

func New(apiKey, displayName string) *Source {
	return &Source{apiKey: apiKey, displayName: displayName}
}

// GetTenantCredentials implements port.CredentialsSource.
func (s *Source) GetTenantCredentials(ctx context.Context, tenantID string) (*domain.TenantCredentials, error) {
	if s.apiKey == "" {
		return nil, &domain.ErrNotFound{Resource: "tenant credentials", ID: tenantID}
	}
	return &domain.TenantCredentials{APIKey: s.apiKey, DisplayName: s.displayName}, nil
}
