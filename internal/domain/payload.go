package domain

// Gateway wire format for POST /checkouts. Field names follow the gateway's
// JSON contract, not ours.

// CheckoutPayload is the full checkout request sent to the gateway.
type CheckoutPayload struct {
	BillingTypes      []string             `json:"billingTypes"`
	ChargeTypes       []string             `json:"chargeTypes"`
	Value             float64              `json:"value"`
	Items             []PayloadItem        `json:"items"`
	CustomerData      *PayloadCustomer     `json:"customerData,omitempty"`
	Installment       *PayloadInstallment  `json:"installment,omitempty"`
	CustomFields      []PayloadCustomField `json:"customFields,omitempty"`
	Splits            []PayloadSplit       `json:"splits"`
	ExternalReference string               `json:"externalReference"`
	Callback          PayloadCallback      `json:"callback"`
	MinutesToExpire   int                  `json:"minutesToExpire"`
}

// PayloadItem is a checkout line item in gateway format.
type PayloadItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	Value       float64 `json:"value"`
}

// PayloadCustomer mirrors the gateway's customerData object. The same shape
// is posted to /customers when the customer-creation fallback fires.
type PayloadCustomer struct {
	Name          string `json:"name"`
	CpfCnpj       string `json:"cpfCnpj"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Province      string `json:"province,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
}

// PayloadInstallment is present only for credit-card checkouts with more
// than one installment.
type PayloadInstallment struct {
	MaxInstallmentCount int `json:"maxInstallmentCount"`
}

// PayloadCustomField carries extra data the gateway stores verbatim
// (item images, base64-encoded).
type PayloadCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PayloadSplit instructs the gateway to route a fixed amount of the
// disbursement to another wallet. This service always emits exactly one
// split line: the platform wallet and the platform margin.
type PayloadSplit struct {
	WalletID   string  `json:"walletId"`
	FixedValue float64 `json:"fixedValue"`
}

// PayloadCallback holds the redirect URLs placed on the checkout.
type PayloadCallback struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// Clone returns a deep copy of the payload so a rebuild for a split retry
// never mutates the request already submitted.
func (p *CheckoutPayload) Clone() *CheckoutPayload {
	out := *p
	out.BillingTypes = append([]string(nil), p.BillingTypes...)
	out.ChargeTypes = append([]string(nil), p.ChargeTypes...)
	out.Items = append([]PayloadItem(nil), p.Items...)
	out.CustomFields = append([]PayloadCustomField(nil), p.CustomFields...)
	out.Splits = append([]PayloadSplit(nil), p.Splits...)
	if p.CustomerData != nil {
		cd := *p.CustomerData
		out.CustomerData = &cd
	}
	if p.Installment != nil {
		in := *p.Installment
		out.Installment = &in
	}
	return &out
}
