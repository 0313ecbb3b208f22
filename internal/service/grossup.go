package service

import (
	"math"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// GrossUpCalculator computes the gross charge amount needed for the
// merchant to receive a desired net after gateway fees, plus the
// platform margin included in that gross.
type GrossUpCalculator struct {
	schedule   *domain.FeeSchedule
	marginRate float64
}

func NewGrossUpCalculator(schedule *domain.FeeSchedule, marginRate float64) *GrossUpCalculator {
	return &GrossUpCalculator{schedule: schedule, marginRate: marginRate}
}

// round2 rounds half away from zero to two decimals (centavos).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute solves gross = (net*(1+margin) + F) / (1 - P) for the given
// payment method and installment count, rounding the result and the
// margin to centavos independently.
func (g *GrossUpCalculator) Compute(net float64, method domain.PaymentMethod, installments int) (*domain.GrossUpResult, error) {
	if math.IsNaN(net) || math.IsInf(net, 0) || net <= 0 {
		return nil, &domain.ErrValidation{Field: "netAmount", Message: "deve ser um valor positivo"}
	}
	fees, err := g.schedule.Fees(method, installments)
	if err != nil {
		return nil, err
	}

	gross := round2((net*(1+g.marginRate) + fees.FixedFee) / (1 - fees.PercentFee))
	margin := round2(net * g.marginRate)

	return &domain.GrossUpResult{Gross: gross, Margin: margin}, nil
}

// NetAfterFees returns what the gateway pays out for a given gross:
// gross minus the percent and fixed fees, rounded to centavos.
// The split clamp uses this to keep the platform share payable.
func (g *GrossUpCalculator) NetAfterFees(gross float64, method domain.PaymentMethod, installments int) (float64, error) {
	fees, err := g.schedule.Fees(method, installments)
	if err != nil {
		return 0, err
	}
	return round2(gross*(1-fees.PercentFee) - fees.FixedFee), nil
}

// MarginRate exposes the configured platform rate (read-only).
func (g *GrossUpCalculator) MarginRate() float64 {
	return g.marginRate
}
