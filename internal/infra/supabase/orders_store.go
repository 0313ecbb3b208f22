package supabase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// AttachPaymentLink writes a generated payment link onto a storefront
// order and flips it to awaiting_payment. Implements port.OrderStore.
func (c *Client) AttachPaymentLink(ctx context.Context, orderID, url string) error {
	ctx, span := tracer.Start(ctx, "Supabase.AttachPaymentLink")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	path := fmt.Sprintf("orders?id=eq.%s", orderID)
	data := map[string]any{
		"payment_url": url,
		"status":      "awaiting_payment",
	}

	if err := c.doPatch(ctx, path, data); err != nil {
		return &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}
	return nil
}
