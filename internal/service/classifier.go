package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/inscrevo/checkout-api-go/internal/domain"
)

// FailureClass is the orchestrator-facing category of a gateway reply.
type FailureClass int

const (
	// FailureNone: the reply is a success and carries no embedded error.
	FailureNone FailureClass = iota
	// FailureUnknownCustomer: the gateway does not know the buyer yet.
	// Recoverable by creating the customer and resubmitting.
	FailureUnknownCustomer
	// FailureSplitExceeded: the platform split is larger than the gateway
	// allows; the reply names the maximum. Recoverable by lowering the split.
	FailureSplitExceeded
	// FailureUnclassified: anything else. Not recoverable here.
	FailureUnclassified
)

// Classification is the classifier verdict for one gateway reply.
type Classification struct {
	Class FailureClass
	// MaxSplit is the gateway's stated split ceiling, set only for
	// FailureSplitExceeded.
	MaxSplit float64
}

// Classifier inspects raw gateway replies and decides whether a
// corrective retry applies. Kept behind an interface because the logic
// is pure text parsing against an unstable upstream contract.
type Classifier interface {
	Classify(resp *domain.GatewayResponse) Classification
}

// TextClassifier classifies by matching known error phrasings and
// extracting BRL amounts from error text.
type TextClassifier struct{}

func NewTextClassifier() *TextClassifier {
	return &TextClassifier{}
}

// brlAmountRe matches amounts like "R$ 1.234,56", "R$117,90" and "R$ 50".
var brlAmountRe = regexp.MustCompile(`R\$\s*([0-9]+(?:\.[0-9]{3})*(?:,[0-9]{1,2})?)`)

func (c *TextClassifier) Classify(resp *domain.GatewayResponse) Classification {
	if resp.OK() {
		// The gateway sometimes returns 200 with an error field in the body.
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != "" {
			if isUnknownCustomer(body.Error) {
				return Classification{Class: FailureUnknownCustomer}
			}
			return Classification{Class: FailureUnclassified}
		}
		return Classification{Class: FailureNone}
	}

	text := errorText(resp.Body)

	if isUnknownCustomer(text) {
		return Classification{Class: FailureUnknownCustomer}
	}

	// A split-limit error quotes at least two amounts: the split we sent
	// and the maximum the gateway accepts. The second one is the ceiling.
	amounts := brlAmountRe.FindAllStringSubmatch(text, -1)
	if len(amounts) >= 2 {
		if max, ok := parseBRL(amounts[1][1]); ok {
			return Classification{Class: FailureSplitExceeded, MaxSplit: max}
		}
	}

	return Classification{Class: FailureUnclassified}
}

func isUnknownCustomer(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "cliente não encontrado") ||
		strings.Contains(lower, "customer not found")
}

// errorText extracts human-readable error descriptions from a gateway
// error body. Falls back to the raw body when it is not the documented
// errors array (the gateway is not consistent about this).
func errorText(body []byte) string {
	var parsed struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		parts := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			parts = append(parts, e.Description)
		}
		return strings.Join(parts, "; ")
	}
	return string(body)
}

// parseBRL converts a Brazilian-formatted amount ("1.234,56") to float64.
func parseBRL(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
