package domain_test

import (
	"testing"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

func TestFeeSchedule_Lookup(t *testing.T) {
	s := domain.DefaultFeeSchedule()

	tests := []struct {
		name         string
		method       domain.PaymentMethod
		installments int
		wantFixed    float64
		wantPercent  float64
	}{
		{"pix single", domain.MethodPix, 1, 1.99, 0},
		{"boleto single", domain.MethodBoleto, 1, 1.99, 0},
		{"credit 1x", domain.MethodCreditCard, 1, 1.99, 0.0299},
		{"credit 2x", domain.MethodCreditCard, 2, 1.99, 0.0349},
		{"credit 6x", domain.MethodCreditCard, 6, 1.99, 0.0349},
		{"credit 7x", domain.MethodCreditCard, 7, 1.99, 0.0399},
		{"credit 12x", domain.MethodCreditCard, 12, 1.99, 0.0399},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees, err := s.Fees(tt.method, tt.installments)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if fees.FixedFee != tt.wantFixed {
				t.Errorf("fixed fee: got %v, want %v", fees.FixedFee, tt.wantFixed)
			}
			if fees.PercentFee != tt.wantPercent {
				t.Errorf("percent fee: got %v, want %v", fees.PercentFee, tt.wantPercent)
			}
		})
	}
}

func TestFeeSchedule_FallbackToLastRange(t *testing.T) {
	s := domain.DefaultFeeSchedule()

	// 24 installments is beyond every defined range; the last range applies.
	fees, err := s.Fees(domain.MethodCreditCard, 24)
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if fees.PercentFee != 0.0399 {
		t.Errorf("expected last range percent 0.0399, got %v", fees.PercentFee)
	}
}

func TestFeeSchedule_UnknownMethod(t *testing.T) {
	s := domain.DefaultFeeSchedule()

	_, err := s.Fees(domain.PaymentMethod("crypto"), 1)
	if err == nil {
		t.Fatal("expected validation error for unknown method")
	}
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Errorf("expected *ErrValidation, got %T", err)
	}
}

func TestFeeSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ranges  []domain.FeeRange
		wantErr bool
	}{
		{
			"contiguous ranges",
			[]domain.FeeRange{
				{MinInstallments: 1, MaxInstallments: 1, FixedFee: 0.5},
				{MinInstallments: 2, MaxInstallments: 12, FixedFee: 0.5, PercentFee: 0.03},
			},
			false,
		},
		{
			"gap between ranges",
			[]domain.FeeRange{
				{MinInstallments: 1, MaxInstallments: 1},
				{MinInstallments: 3, MaxInstallments: 12},
			},
			true,
		},
		{
			"does not start at 1",
			[]domain.FeeRange{{MinInstallments: 2, MaxInstallments: 12}},
			true,
		},
		{
			"max below min",
			[]domain.FeeRange{{MinInstallments: 1, MaxInstallments: 0}},
			true,
		},
		{
			"percent fee at 100%",
			[]domain.FeeRange{{MinInstallments: 1, MaxInstallments: 1, PercentFee: 1}},
			true,
		},
		{
			"negative fixed fee",
			[]domain.FeeRange{{MinInstallments: 1, MaxInstallments: 1, FixedFee: -0.1}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &domain.FeeSchedule{
				Version: "test",
				Methods: map[domain.PaymentMethod][]domain.FeeRange{
					domain.MethodPix: tt.ranges,
				},
			}
			err := s.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestParseFeeSchedule(t *testing.T) {
	data := []byte(`{
		"version": "2025-06",
		"methods": {
			"pix": [{"minInstallments": 1, "maxInstallments": 1, "fixedFee": 0.99, "percentFee": 0}]
		}
	}`)

	s, err := domain.ParseFeeSchedule(data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Version != "2025-06" {
		t.Errorf("expected version 2025-06, got %s", s.Version)
	}
	fees, err := s.Fees(domain.MethodPix, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fees.FixedFee != 0.99 {
		t.Errorf("expected fixed fee 0.99, got %v", fees.FixedFee)
	}

	if _, err := domain.ParseFeeSchedule([]byte(`{"version":"x","methods":{}}`)); err == nil {
		t.Error("expected error for empty methods")
	}
	if _, err := domain.ParseFeeSchedule([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
