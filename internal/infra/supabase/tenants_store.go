package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/infra/resilience"
)

// tenantCredentialsRow maps the tenant_gateway_credentials table.
type tenantCredentialsRow struct {
	TenantID    string `json:"tenant_id"`
	APIKey      string `json:"gateway_api_key"`
	DisplayName string `json:"display_name"`
}

// GetTenantCredentials resolves a tenant's gateway credentials.
// Implements port.CredentialsSource. Reads are idempotent, so this one
// goes through the retry wrapper as well as the breaker.
func (c *Client) GetTenantCredentials(ctx context.Context, tenantID string) (*domain.TenantCredentials, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTenantCredentials")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	var creds *domain.TenantCredentials

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("tenant_gateway_credentials?tenant_id=eq.%s&limit=1", tenantID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "tenant credentials", ID: tenantID}
			}

			var rows []tenantCredentialsRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode tenant credentials: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "tenant credentials", ID: tenantID}
			}

			creds = &domain.TenantCredentials{
				APIKey:      rows[0].APIKey,
				DisplayName: rows[0].DisplayName,
			}
			return nil
		})
	})

	if err != nil {
		if nf, ok := err.(*domain.ErrNotFound); ok {
			return nil, nf
		}
		return nil, &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}

	return creds, nil
}
