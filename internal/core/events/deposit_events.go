package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentInitiated = "payment.initiated"
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeWalletAction     = "wallet.action"
)

// AllEventTypes lists every event this service emits.
var AllEventTypes = []string{
	EventTypePaymentInitiated,
	EventTypePaymentCompleted,
	EventTypePaymentFailed,
	EventTypeWalletAction,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type PaymentInitiatedEvent struct {
	BaseEvent
	GatewayID string          `json:"gateway_id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	UserID    string          `json:"user_id,omitempty"`
}

func NewPaymentInitiatedEvent(gatewayID, orderID string, amount decimal.Decimal, userID string) *PaymentInitiatedEvent {
	return &PaymentInitiatedEvent{
		BaseEvent: newBase(EventTypePaymentInitiated, map[string]interface{}{
			"gateway_id": gatewayID,
			"order_id":   orderID,
			"amount":     amount.String(),
			"user_id":    userID,
		}),
		GatewayID: gatewayID,
		OrderID:   orderID,
		Amount:    amount,
		UserID:    userID,
	}
}

// PaymentSettledEvent is emitted once an order reaches a terminal status.
// Its type is payment.completed or payment.failed.
type PaymentSettledEvent struct {
	BaseEvent
	GatewayID     string          `json:"gateway_id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Message       string          `json:"message,omitempty"`
}

func NewPaymentSettledEvent(gatewayID, orderID, status string, amount decimal.Decimal, transactionID, message string) *PaymentSettledEvent {
	eventType := EventTypePaymentFailed
	if status == "SUCCESS" {
		eventType = EventTypePaymentCompleted
	}
	return &PaymentSettledEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"gateway_id":     gatewayID,
			"order_id":       orderID,
			"status":         status,
			"amount":         amount.String(),
			"transaction_id": transactionID,
			"message":        message,
		}),
		GatewayID:     gatewayID,
		OrderID:       orderID,
		Status:        status,
		Amount:        amount,
		TransactionID: transactionID,
		Message:       message,
	}
}

type WalletActionEvent struct {
	BaseEvent
	Action        string `json:"action"`
	OK            bool   `json:"ok"`
	TransactionID string `json:"transaction_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

func NewWalletActionEvent(action string, ok bool, transactionID, userID string) *WalletActionEvent {
	return &WalletActionEvent{
		BaseEvent: newBase(EventTypeWalletAction, map[string]interface{}{
			"action":         action,
			"ok":             ok,
			"transaction_id": transactionID,
			"user_id":        userID,
		}),
		Action:        action,
		OK:            ok,
		TransactionID: transactionID,
		UserID:        userID,
	}
}
