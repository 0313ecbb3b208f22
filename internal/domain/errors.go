package domain

import "fmt"

// Error types for consistent error handling across the checkout service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input). Fails before any
// network call.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConfig indicates missing or invalid checkout configuration (gateway
// base URL, tenant API key). Fails before any network call.
type ErrConfig struct {
	Field string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("missing checkout configuration: %s", e.Field)
}

// ErrDuplicate indicates a repeat deduplication token within the dedup
// window: the orchestrator refuses to run twice for the same logical order.
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate checkout attempt: %s", e.Key)
}

// ErrGateway carries an unclassified gateway rejection verbatim: status plus
// the parsed-or-raw body, for operator diagnosis. Never shown to end users.
type ErrGateway struct {
	Status  int
	Payload string
}

func (e *ErrGateway) Error() string {
	return fmt.Sprintf("gateway error (status %d): %s", e.Status, e.Payload)
}

// ErrGatewayContract indicates the gateway broke its own response contract
// (2xx body with none of the known checkout URL fields). An integration
// fault, distinct from user input errors.
type ErrGatewayContract struct {
	Message string
	Body    string
}

func (e *ErrGatewayContract) Error() string {
	return fmt.Sprintf("gateway contract violation: %s", e.Message)
}

// ErrExternalService indicates a transport-level failure calling an
// external service.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}
