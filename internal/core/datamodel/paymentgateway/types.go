package paymentgateway

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type GatewayID string

const (
	GatewayA GatewayID = "gateway_a"
	GatewayB GatewayID = "gateway_b"
)

func (g GatewayID) Valid() bool {
	return g == GatewayA || g == GatewayB
}

func (g GatewayID) String() string {
	return string(g)
}

// ParseGatewayID accepts the canonical id as well as the short "a"/"b" forms used in URLs.
func ParseGatewayID(raw string) (GatewayID, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", string(GatewayA):
		return GatewayA, true
	case "b", string(GatewayB):
		return GatewayB, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// MapProviderStatus folds provider specific states into the canonical three-state enum.
// Anything not recognised stays PENDING so the order is checked again later.
func MapProviderStatus(raw string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "SUCCEEDED", "PAID", "COMPLETED", "CAPTURED", "SETTLED":
		return PaymentStatusSuccess
	case "FAILED", "FAILURE", "CANCELLED", "CANCELED", "EXPIRED", "DECLINED", "REJECTED":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// CreatePaymentRequest is the body of the remote "create payment" call.
// Amount travels as a bare JSON number.
type CreatePaymentRequest struct {
	Amount json.Number `json:"amount"`
}

func NewCreatePaymentRequest(amount decimal.Decimal) CreatePaymentRequest {
	return CreatePaymentRequest{Amount: json.Number(amount.String())}
}

// CreatePaymentResponse is the decoded "create payment" reply.
type CreatePaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"payment_url,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type StatusRequest struct {
	OrderID string `json:"order_id"`
}

// StatusResponse is the decoded "check status" reply. Status holds the provider value as sent;
// Canonical is filled in by the client.
type StatusResponse struct {
	Success       bool            `json:"success"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Message       string          `json:"message,omitempty"`
	Canonical     PaymentStatus   `json:"-"`
}
