// Package domain holds the value objects of the checkout orchestration core.
// Everything here is request-scoped: built per checkout attempt, never
// persisted by this service.
package domain

// PaymentMethod identifies how the end customer pays.
type PaymentMethod string

const (
	MethodPix        PaymentMethod = "pix"
	MethodBoleto     PaymentMethod = "boleto"
	MethodCreditCard PaymentMethod = "credit_card"
)

// Valid reports whether the method is one the fee schedule knows about.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPix, MethodBoleto, MethodCreditCard:
		return true
	}
	return false
}

// BillingType returns the gateway-side billing type token for the method.
func (m PaymentMethod) BillingType() string {
	switch m {
	case MethodPix:
		return "PIX"
	case MethodBoleto:
		return "BOLETO"
	case MethodCreditCard:
		return "CREDIT_CARD"
	}
	return ""
}

// LineItem is one storefront item (ticket, merch) going into the checkout.
type LineItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitValue   float64 `json:"unitValue"`
	// ImageBase64 carries an optional item image forwarded to the gateway
	// as a custom field.
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// Customer is the buyer snapshot sent to the gateway.
type Customer struct {
	Name          string `json:"name"`
	CpfCnpj       string `json:"cpfCnpj"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Province      string `json:"province,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
}

// CallbackURLs are the storefront pages the gateway redirects to.
type CallbackURLs struct {
	Success string `json:"success"`
	Error   string `json:"error"`
}

// CheckoutInput is the validated inbound contract for one orchestration run.
type CheckoutInput struct {
	TenantID       string
	UserID         string
	RegistrationID string
	// OrderID, when set, is the storefront order that receives the payment
	// link after a successful run.
	OrderID string
	// IdempotencyKey is the caller-supplied deduplication token. Repeat
	// tokens within the dedup window are rejected before any gateway call.
	IdempotencyKey string

	NetAmount    float64
	Method       PaymentMethod
	Installments int

	Items     []LineItem
	Customer  Customer
	Callbacks CallbackURLs
}

// TenantCredentials are the tenant-scoped gateway credentials resolved from
// the record backend.
type TenantCredentials struct {
	// APIKey may or may not carry the gateway's "$" prefix; the gateway
	// client normalizes it.
	APIKey string
	// DisplayName is sent as the User-Agent on gateway calls.
	DisplayName string
}

// GrossUpResult is the outcome of the gross-up computation: the amount
// charged to the end customer and the platform's cut, both in the desired
// net's currency.
type GrossUpResult struct {
	Gross  float64 `json:"gross"`
	Margin float64 `json:"margin"`
}

// CheckoutResult is what a successful orchestration returns to the caller.
type CheckoutResult struct {
	CheckoutURL       string  `json:"checkoutUrl"`
	Gross             float64 `json:"gross"`
	Margin            float64 `json:"margin"`
	ExternalReference string  `json:"externalReference"`
	// Recovered names the failure class absorbed by a corrective retry
	// ("customer_created", "split_adjusted"); empty when the first
	// submission went through.
	Recovered string `json:"recovered,omitempty"`
}

// GatewayResponse is a raw gateway reply: status plus the body as captured
// text. Parsing is deferred to the classifier because the gateway is known
// to embed business errors inside 2xx bodies and to return malformed JSON
// on some errors.
type GatewayResponse struct {
	Status int
	Body   []byte
}

// OK reports whether the HTTP exchange itself succeeded.
func (r *GatewayResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
