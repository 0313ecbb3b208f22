package service

import (
	"fmt"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// Gateway field limits. Longer values are rejected by the gateway, so
// the builder truncates instead of failing the whole checkout.
const (
	maxItemNameLen        = 30
	maxItemDescriptionLen = 250
)

// BuiltCheckout pairs the wire payload with the amounts that produced it.
type BuiltCheckout struct {
	Payload *domain.CheckoutPayload
	Gross   float64
	Margin  float64
}

// CheckoutBuilder assembles gateway checkout payloads from validated
// checkout input: gross-up, item normalization, split and reference.
type CheckoutBuilder struct {
	calc          *GrossUpCalculator
	walletID      string
	expiryMinutes int
}

func NewCheckoutBuilder(calc *GrossUpCalculator, walletID string, expiryMinutes int) *CheckoutBuilder {
	return &CheckoutBuilder{calc: calc, walletID: walletID, expiryMinutes: expiryMinutes}
}

// Build computes the charge amounts and assembles the full payload.
// The platform split is clamped below the merchant's post-fee receivable
// so the gateway never sees a split larger than the payout.
func (b *CheckoutBuilder) Build(in *domain.CheckoutInput) (*BuiltCheckout, error) {
	result, err := b.calc.Compute(in.NetAmount, in.Method, in.Installments)
	if err != nil {
		return nil, err
	}
	gross, margin := result.Gross, result.Margin

	netAfter, err := b.calc.NetAfterFees(gross, in.Method, in.Installments)
	if err != nil {
		return nil, err
	}
	if margin >= netAfter {
		margin = round2(netAfter - 0.01)
	}

	chargeType := "DETACHED"
	if in.Method == domain.MethodCreditCard && in.Installments > 1 {
		chargeType = "INSTALLMENT"
	}

	payload := &domain.CheckoutPayload{
		BillingTypes:      []string{in.Method.BillingType()},
		ChargeTypes:       []string{chargeType},
		Value:             gross,
		ExternalReference: ExternalReference(in.TenantID, in.UserID, in.RegistrationID),
		MinutesToExpire:   b.expiryMinutes,
		Callback: domain.PayloadCallback{
			SuccessURL: in.Callbacks.Success,
			CancelURL:  in.Callbacks.Error,
		},
	}

	if chargeType == "INSTALLMENT" {
		payload.Installment = &domain.PayloadInstallment{MaxInstallmentCount: in.Installments}
	}

	for i, item := range in.Items {
		payload.Items = append(payload.Items, domain.PayloadItem{
			Name:        truncate(item.Name, maxItemNameLen),
			Description: truncate(item.Description, maxItemDescriptionLen),
			Quantity:    item.Quantity,
			Value:       item.UnitValue,
		})
		if item.ImageBase64 != "" {
			payload.CustomFields = append(payload.CustomFields, domain.PayloadCustomField{
				Name:  fmt.Sprintf("item_%d_image", i),
				Value: item.ImageBase64,
			})
		}
	}

	if in.Customer != (domain.Customer{}) {
		payload.CustomerData = &domain.PayloadCustomer{
			Name:          in.Customer.Name,
			CpfCnpj:       in.Customer.CpfCnpj,
			Email:         in.Customer.Email,
			Phone:         in.Customer.Phone,
			Address:       in.Customer.Address,
			AddressNumber: in.Customer.AddressNumber,
			Province:      in.Customer.Province,
			PostalCode:    in.Customer.PostalCode,
		}
	}

	if b.walletID != "" && margin > 0 {
		payload.Splits = []domain.PayloadSplit{{WalletID: b.walletID, FixedValue: margin}}
	}

	return &BuiltCheckout{Payload: payload, Gross: gross, Margin: margin}, nil
}

// RebuildWithSplit clones the payload with a reduced platform split,
// used when the gateway reports the split exceeds its limit.
func (b *CheckoutBuilder) RebuildWithSplit(built *BuiltCheckout, split float64) *BuiltCheckout {
	clone := built.Payload.Clone()
	if len(clone.Splits) > 0 {
		clone.Splits[0].FixedValue = split
	} else if b.walletID != "" {
		clone.Splits = []domain.PayloadSplit{{WalletID: b.walletID, FixedValue: split}}
	}
	return &BuiltCheckout{Payload: clone, Gross: built.Gross, Margin: split}
}

// truncate cuts s to at most max runes, safe for multi-byte text.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
