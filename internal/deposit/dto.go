package deposit

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/common/validation"
)

type StartDepositRequest struct {
	Amount json.Number `json:"amount"`
}

func (r StartDepositRequest) Validate() (decimal.Decimal, error) {
	v := validation.NewValidator()
	v.Field("amount", r.Amount.String()).Required()
	if appErr := v.Validate(); appErr != nil {
		return decimal.Zero, appErr
	}

	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return decimal.Zero, internal.ErrInvalidAmount
	}
	return amount, nil
}

// numberField writes amounts as bare JSON numbers.
func numberField(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type PendingOrderResponse struct {
	GatewayID string          `json:"gateway_id"`
	OrderID   string          `json:"order_id"`
	Amount    json.Number `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewPendingOrderResponse(order *PaymentOrder) PendingOrderResponse {
	return PendingOrderResponse{
		GatewayID: order.GatewayID.String(),
		OrderID:   order.OrderID,
		Amount:    numberField(order.Amount),
		CreatedAt: order.CreatedAt,
	}
}

type OutcomeResponse struct {
	GatewayID     string          `json:"gateway_id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Amount        json.Number     `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Message       string          `json:"message,omitempty"`
}

func NewOutcomeResponse(o *Outcome) OutcomeResponse {
	return OutcomeResponse{
		GatewayID:     o.GatewayID.String(),
		OrderID:       o.OrderID,
		Status:        string(o.Status),
		Amount:        numberField(o.Amount),
		TransactionID: o.TransactionID,
		Message:       o.Message,
	}
}
