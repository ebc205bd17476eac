// Package deposit runs the redirect-based deposit flow: initiate with a gateway, remember the
// order durably, and reconcile it once the user comes back.
package deposit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
)

// GatewayAPI is implemented by *paymentgateway.Client.
type GatewayAPI interface {
	Gateway() gatewaytypes.GatewayID
	SupportsStatus() bool
	IsBusy(ctx context.Context) bool
	Initiate(ctx context.Context, amount decimal.Decimal) paymentgateway.InitiateResult
	CheckStatus(ctx context.Context, orderID string) *gatewaytypes.StatusResponse
}

// StoreAPI is implemented by *pendingorder.Store.
type StoreAPI interface {
	Save(ctx context.Context, gatewayID gatewaytypes.GatewayID, orderID string, amount decimal.Decimal) error
	Load(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*pendingorder.Record, error)
	Clear(ctx context.Context, gatewayID gatewaytypes.GatewayID) error
	ClearOrder(ctx context.Context, gatewayID gatewaytypes.GatewayID, orderID string) (bool, error)
}

// PaymentOrder is a successfully initiated order. It never changes after creation.
type PaymentOrder struct {
	OrderID   string
	GatewayID gatewaytypes.GatewayID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Outcome is the result of one reconciliation.
type Outcome struct {
	GatewayID     gatewaytypes.GatewayID
	OrderID       string
	Status        gatewaytypes.PaymentStatus
	Amount        decimal.Decimal
	TransactionID string
	Message       string
}

func (o Outcome) Terminal() bool {
	return o.Status.IsTerminal()
}
