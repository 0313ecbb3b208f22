package domain

import (
	"encoding/json"
	"fmt"
)

// FeeRange is one immutable fee schedule entry: the gateway's fixed and
// percentage fee for an installment-count range of a payment method.
type FeeRange struct {
	MinInstallments int     `json:"minInstallments"`
	MaxInstallments int     `json:"maxInstallments"`
	FixedFee        float64 `json:"fixedFee"`
	PercentFee      float64 `json:"percentFee"`
}

// FeeSchedule maps payment methods to their fee ranges. Loaded once at
// startup and never mutated, so it is safe to share across concurrent
// orchestration runs without locking.
type FeeSchedule struct {
	Version string                       `json:"version"`
	Methods map[PaymentMethod][]FeeRange `json:"methods"`
}

// Fees returns the fee range whose installment bounds contain the requested
// count. A count beyond every defined range falls back to the last (highest)
// range for the method — degrade gracefully, not an error.
func (s *FeeSchedule) Fees(method PaymentMethod, installments int) (FeeRange, error) {
	ranges, ok := s.Methods[method]
	if !ok || len(ranges) == 0 {
		return FeeRange{}, &ErrValidation{Field: "paymentMethod", Message: fmt.Sprintf("método de pagamento desconhecido: %s", method)}
	}
	for _, r := range ranges {
		if installments >= r.MinInstallments && installments <= r.MaxInstallments {
			return r, nil
		}
	}
	return ranges[len(ranges)-1], nil
}

// Validate checks that every method's ranges are contiguous and
// non-overlapping over installment count, starting at 1.
func (s *FeeSchedule) Validate() error {
	if len(s.Methods) == 0 {
		return fmt.Errorf("fee schedule %q has no methods", s.Version)
	}
	for method, ranges := range s.Methods {
		if len(ranges) == 0 {
			return fmt.Errorf("fee schedule %q: method %s has no ranges", s.Version, method)
		}
		next := 1
		for i, r := range ranges {
			if r.MinInstallments != next {
				return fmt.Errorf("fee schedule %q: method %s range %d starts at %d, want %d", s.Version, method, i, r.MinInstallments, next)
			}
			if r.MaxInstallments < r.MinInstallments {
				return fmt.Errorf("fee schedule %q: method %s range %d has max < min", s.Version, method, i)
			}
			if r.PercentFee < 0 || r.PercentFee >= 1 {
				return fmt.Errorf("fee schedule %q: method %s range %d percent fee out of [0,1)", s.Version, method, i)
			}
			if r.FixedFee < 0 {
				return fmt.Errorf("fee schedule %q: method %s range %d has negative fixed fee", s.Version, method, i)
			}
			next = r.MaxInstallments + 1
		}
	}
	return nil
}

// ParseFeeSchedule decodes and validates a JSON fee schedule, the override
// format loaded from FEE_SCHEDULE_PATH.
func ParseFeeSchedule(data []byte) (*FeeSchedule, error) {
	var s FeeSchedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode fee schedule: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultFeeSchedule is the built-in gateway fee table. The pix/boleto fixed
// fee equals the credit-card fixed fee so a credit-card gross is never below
// the pix gross for the same net.
func DefaultFeeSchedule() *FeeSchedule {
	return &FeeSchedule{
		Version: "2025-01",
		Methods: map[PaymentMethod][]FeeRange{
			MethodPix: {
				{MinInstallments: 1, MaxInstallments: 1, FixedFee: 1.99, PercentFee: 0},
			},
			MethodBoleto: {
				{MinInstallments: 1, MaxInstallments: 1, FixedFee: 1.99, PercentFee: 0},
			},
			MethodCreditCard: {
				{MinInstallments: 1, MaxInstallments: 1, FixedFee: 1.99, PercentFee: 0.0299},
				{MinInstallments: 2, MaxInstallments: 6, FixedFee: 1.99, PercentFee: 0.0349},
				{MinInstallments: 7, MaxInstallments: 12, FixedFee: 1.99, PercentFee: 0.0399},
			},
		},
	}
}
