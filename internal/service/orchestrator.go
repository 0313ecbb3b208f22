package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/inscrevo/checkout-api-go/internal/domain"
	"github.com/inscrevo/checkout-api-go/internal/infra/observability"
	"github.com/inscrevo/checkout-api-go/internal/port"
)

// runState tracks where a single orchestration run is. Each corrective
// retry class fires at most once per run; after a resubmission the
// outcome is final whatever it is.
type runState int

const (
	stateBuilt runState = iota
	stateSubmitted
	stateNeedsCustomer
	stateNeedsSplitRetry
	stateResubmitted
	stateSucceeded
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateBuilt:
		return "built"
	case stateSubmitted:
		return "submitted"
	case stateNeedsCustomer:
		return "needs_customer"
	case stateNeedsSplitRetry:
		return "needs_split_retry"
	case stateResubmitted:
		return "resubmitted"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Orchestrator drives one checkout attempt end to end: build the
// payload, submit it, classify the reply and apply at most one
// corrective retry before settling on a final outcome.
type Orchestrator struct {
	gateway    port.PaymentGateway
	builder    *CheckoutBuilder
	classifier Classifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewOrchestrator(gateway port.PaymentGateway, builder *CheckoutBuilder, classifier Classifier, metrics *observability.Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:    gateway,
		builder:    builder,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run executes the checkout state machine for one validated input.
func (o *Orchestrator) Run(ctx context.Context, creds domain.TenantCredentials, in *domain.CheckoutInput) (*domain.CheckoutResult, error) {
	built, err := o.builder.Build(in)
	if err != nil {
		return nil, err
	}

	resp, err := o.gateway.SubmitCheckout(ctx, creds, built.Payload)
	if err != nil {
		return nil, err
	}

	state := stateSubmitted
	recovered := ""

	verdict := o.classifier.Classify(resp)
	switch verdict.Class {
	case FailureNone:
		state = stateSucceeded

	case FailureUnknownCustomer:
		state = stateNeedsCustomer
		o.logger.Info("gateway does not know the customer, creating and resubmitting",
			zap.String("tenantId", in.TenantID),
			zap.String("externalReference", built.Payload.ExternalReference))

		if built.Payload.CustomerData == nil {
			o.metrics.IncrGatewayError("unknown_customer")
			return nil, &domain.ErrGateway{Status: resp.Status, Payload: string(resp.Body)}
		}
		if _, err := o.gateway.CreateCustomer(ctx, creds, built.Payload.CustomerData); err != nil {
			return nil, err
		}
		o.metrics.IncrRetry("customer_created")
		recovered = "customer_created"

		resp, err = o.gateway.SubmitCheckout(ctx, creds, built.Payload)
		if err != nil {
			return nil, err
		}
		state = stateResubmitted

	case FailureSplitExceeded:
		state = stateNeedsSplitRetry
		newSplit := round2(verdict.MaxSplit - 0.01)
		o.logger.Info("platform split exceeds gateway limit, lowering and resubmitting",
			zap.String("tenantId", in.TenantID),
			zap.Float64("maxSplit", verdict.MaxSplit),
			zap.Float64("newSplit", newSplit))

		rebuilt := o.builder.RebuildWithSplit(built, newSplit)
		o.metrics.IncrRetry("split_adjusted")
		recovered = "split_adjusted"
		built = rebuilt

		resp, err = o.gateway.SubmitCheckout(ctx, creds, built.Payload)
		if err != nil {
			return nil, err
		}
		state = stateResubmitted

	default:
		o.metrics.IncrGatewayError("unclassified")
		return nil, &domain.ErrGateway{Status: resp.Status, Payload: string(resp.Body)}
	}

	// After a resubmission the reply is final: either it is a clean success
	// or the run fails with the gateway's answer verbatim. No retry chains.
	if state == stateResubmitted {
		final := o.classifier.Classify(resp)
		if final.Class != FailureNone {
			o.metrics.IncrGatewayError("retry_failed")
			return nil, &domain.ErrGateway{Status: resp.Status, Payload: string(resp.Body)}
		}
		state = stateSucceeded
	}

	url, err := extractCheckoutURL(resp.Body)
	if err != nil {
		o.metrics.IncrGatewayError("contract")
		return nil, err
	}

	o.logger.Debug("checkout orchestration settled",
		zap.String("state", state.String()),
		zap.String("recovered", recovered),
		zap.String("externalReference", built.Payload.ExternalReference))

	return &domain.CheckoutResult{
		CheckoutURL:       url,
		Gross:             built.Gross,
		Margin:            built.Margin,
		ExternalReference: built.Payload.ExternalReference,
		Recovered:         recovered,
	}, nil
}

// extractCheckoutURL pulls the payment link out of a success body. The
// gateway has shipped it under three different field names over time.
func extractCheckoutURL(body []byte) (string, error) {
	var parsed struct {
		InvoiceURL  string `json:"invoiceUrl"`
		CheckoutURL string `json:"checkoutUrl"`
		Link        string `json:"link"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &domain.ErrGatewayContract{
			Message: fmt.Sprintf("success body is not valid JSON: %v", err),
			Body:    string(body),
		}
	}
	switch {
	case parsed.InvoiceURL != "":
		return parsed.InvoiceURL, nil
	case parsed.CheckoutURL != "":
		return parsed.CheckoutURL, nil
	case parsed.Link != "":
		return parsed.Link, nil
	}
	return "", &domain.ErrGatewayContract{
		Message: "success body carries no checkout URL field",
		Body:    string(body),
	}
}
