package deposit

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/core/events"
	"github.com/frahmantamala/wallet-payments/internal/metrics"
	"github.com/frahmantamala/wallet-payments/internal/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
)

const recordFailedMessage = "Could not record the payment, please try again"

type Service struct {
	gateways map[gatewaytypes.GatewayID]GatewayAPI
	store    StoreAPI
	events   events.Publisher
	logger   *slog.Logger
}

func NewService(gateways []GatewayAPI, store StoreAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	byID := make(map[gatewaytypes.GatewayID]GatewayAPI, len(gateways))
	for _, gw := range gateways {
		byID[gw.Gateway()] = gw
	}
	return &Service{
		gateways: byID,
		store:    store,
		events:   publisher,
		logger:   logger,
	}
}

func (s *Service) gateway(gatewayID gatewaytypes.GatewayID) (GatewayAPI, bool) {
	gw, ok := s.gateways[gatewayID]
	return gw, ok
}

// SupportsStatus reports whether orders on gatewayID can settle without the user returning.
func (s *Service) SupportsStatus(gatewayID gatewaytypes.GatewayID) bool {
	gw, ok := s.gateway(gatewayID)
	return ok && gw.SupportsStatus()
}

func (s *Service) IsBusy(ctx context.Context, gatewayID gatewaytypes.GatewayID) bool {
	gw, ok := s.gateway(gatewayID)
	return ok && gw.IsBusy(ctx)
}

// Start initiates a payment and records it as pending. The payment URL is only handed back
// once the record is durable, so a user who never returns can still be reconciled.
func (s *Service) Start(ctx context.Context, gatewayID gatewaytypes.GatewayID, amount decimal.Decimal) paymentgateway.InitiateResult {
	gw, ok := s.gateway(gatewayID)
	if !ok {
		return paymentgateway.InitiateResult{Error: internal.UserMessage(internal.ErrInvalidGateway)}
	}

	result := gw.Initiate(ctx, amount)
	if !result.Success {
		return result
	}

	if err := s.store.Save(ctx, gatewayID, result.OrderID, amount); err != nil {
		s.logger.Error("payment initiated but not recorded",
			"gateway", gatewayID.String(),
			"order_id", result.OrderID,
			"error", err)
		return paymentgateway.InitiateResult{Error: recordFailedMessage}
	}

	s.publish(ctx, events.NewPaymentInitiatedEvent(gatewayID.String(), result.OrderID, amount, internal.UserIDFromContext(ctx)))
	return result
}

// Pending returns the recorded order for gatewayID, or nil.
func (s *Service) Pending(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*PaymentOrder, error) {
	if _, ok := s.gateway(gatewayID); !ok {
		return nil, internal.ErrInvalidGateway
	}
	record, err := s.store.Load(ctx, gatewayID)
	if err != nil || record == nil {
		return nil, err
	}
	return &PaymentOrder{
		OrderID:   record.OrderID,
		GatewayID: gatewayID,
		Amount:    record.Amount,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Resume reconciles whatever order is pending for gatewayID. It returns nil when nothing is pending.
func (s *Service) Resume(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*Outcome, error) {
	order, err := s.Pending(ctx, gatewayID)
	if err != nil || order == nil {
		return nil, err
	}

	outcome := s.Reconcile(ctx, gatewayID, order.OrderID)
	if outcome.Amount.IsZero() {
		outcome.Amount = order.Amount
	}
	return &outcome, nil
}

// Reconcile queries the order status once. A terminal status clears the pending slot;
// anything else, including a failed check, leaves it for a later attempt.
func (s *Service) Reconcile(ctx context.Context, gatewayID gatewaytypes.GatewayID, orderID string) Outcome {
	outcome := Outcome{
		GatewayID: gatewayID,
		OrderID:   orderID,
		Status:    gatewaytypes.PaymentStatusPending,
	}

	gw, ok := s.gateway(gatewayID)
	if !ok {
		outcome.Message = internal.UserMessage(internal.ErrInvalidGateway)
		return outcome
	}

	status := gw.CheckStatus(ctx, orderID)
	if status != nil {
		outcome.Status = status.Canonical
		outcome.Amount = status.Amount
		outcome.TransactionID = status.TransactionID
		outcome.Message = status.Message
	}

	metrics.Reconciliations.WithLabelValues(gatewayID.String(), string(outcome.Status)).Inc()

	if !outcome.Terminal() {
		s.logger.Info("order still pending", "gateway", gatewayID.String(), "order_id", orderID)
		return outcome
	}

	s.clearIfCurrent(ctx, gatewayID, orderID)

	s.logger.Info("order reconciled",
		"gateway", gatewayID.String(),
		"order_id", orderID,
		"status", outcome.Status,
		"transaction_id", outcome.TransactionID)

	s.publish(ctx, events.NewPaymentSettledEvent(gatewayID.String(), orderID, string(outcome.Status),
		outcome.Amount, outcome.TransactionID, outcome.Message))
	return outcome
}

// clearIfCurrent leaves the slot alone when it already holds a newer order.
func (s *Service) clearIfCurrent(ctx context.Context, gatewayID gatewaytypes.GatewayID, orderID string) {
	if _, err := s.store.ClearOrder(ctx, gatewayID, orderID); err != nil {
		s.logger.Error("could not clear settled order", "gateway", gatewayID.String(), "order_id", orderID, "error", err)
	}
}

// Dismiss drops the pending order without reconciling it.
func (s *Service) Dismiss(ctx context.Context, gatewayID gatewaytypes.GatewayID) error {
	if _, ok := s.gateway(gatewayID); !ok {
		return internal.ErrInvalidGateway
	}
	s.logger.Info("pending order dismissed", "gateway", gatewayID.String())
	return s.store.Clear(ctx, gatewayID)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

var _ StoreAPI = (*pendingorder.Store)(nil)
var _ GatewayAPI = (*paymentgateway.Client)(nil)
