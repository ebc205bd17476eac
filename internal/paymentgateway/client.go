package paymentgateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/common/validation"
	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/metrics"
	"github.com/frahmantamala/wallet-payments/internal/remote"
)

type Config struct {
	Gateway    gatewaytypes.GatewayID
	CreatePath string
	// StatusPath is empty for gateways that cannot be polled.
	StatusPath string
}

// InitiateResult is the only shape Initiate ever returns; the failure class is not recoverable from it.
type InitiateResult struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"payment_url,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func failed(err *internal.AppError) InitiateResult {
	return InitiateResult{Success: false, Error: internal.UserMessage(err)}
}

// Client talks to one payment gateway through the backend.
type Client struct {
	gateway    gatewaytypes.GatewayID
	createPath string
	statusPath string
	caller     *remote.Client
	inflight   *SingleFlight
	logger     *slog.Logger
}

func NewClient(cfg Config, caller *remote.Client, inflight *SingleFlight, logger *slog.Logger) *Client {
	if inflight == nil {
		inflight = NewSingleFlight()
	}
	return &Client{
		gateway:    cfg.Gateway,
		createPath: cfg.CreatePath,
		statusPath: cfg.StatusPath,
		caller:     caller,
		inflight:   inflight,
		logger:     logger.With("gateway", cfg.Gateway.String()),
	}
}

func (c *Client) Gateway() gatewaytypes.GatewayID {
	return c.gateway
}

func (c *Client) SupportsStatus() bool {
	return c.statusPath != ""
}

// IsBusy reports whether an initiation for this gateway (and the caller in ctx) is outstanding.
func (c *Client) IsBusy(ctx context.Context) bool {
	return c.inflight.Busy(c.flightKey(ctx))
}

func (c *Client) flightKey(ctx context.Context) string {
	if userID := internal.UserIDFromContext(ctx); userID != "" {
		return userID + "::" + c.gateway.String()
	}
	return c.gateway.String()
}

// Initiate asks the backend to create a payment and returns where to send the user.
// It never persists anything; the caller records the pending order before redirecting.
func (c *Client) Initiate(ctx context.Context, amount decimal.Decimal) InitiateResult {
	if appErr := validation.ValidateGatewayAmount(amount, c.gateway); appErr != nil {
		c.logger.Info("payment initiation rejected by amount check", "amount", amount.String())
		metrics.GatewayInitiations.WithLabelValues(c.gateway.String(), metrics.OutcomeRejected).Inc()
		return failed(appErr)
	}

	release, ok := c.inflight.TryAcquire(c.flightKey(ctx))
	if !ok {
		c.logger.Warn("payment initiation already in flight")
		metrics.GatewayInitiations.WithLabelValues(c.gateway.String(), metrics.OutcomeRejected).Inc()
		return failed(internal.ErrInitiationInFlight)
	}
	defer release()

	c.logger.Info("initiating payment", "amount", amount.String())

	start := time.Now()
	var resp gatewaytypes.CreatePaymentResponse
	appErr := c.caller.Call(ctx, c.createPath, gatewaytypes.NewCreatePaymentRequest(amount), createPaymentSchema, &resp)
	metrics.RemoteLatency.WithLabelValues("create_payment").Observe(time.Since(start).Seconds())

	if appErr == nil {
		appErr = checkCreateResponse(&resp)
	}
	if appErr != nil {
		c.logger.Error("payment initiation failed",
			"error", appErr,
			"error_type", appErr.Type,
			"amount", amount.String())
		metrics.GatewayInitiations.WithLabelValues(c.gateway.String(), metrics.OutcomeFailed).Inc()
		return failed(appErr)
	}

	c.logger.Info("payment initiated", "order_id", resp.OrderID, "amount", amount.String())
	metrics.GatewayInitiations.WithLabelValues(c.gateway.String(), metrics.OutcomeSuccess).Inc()

	return InitiateResult{
		Success:    true,
		PaymentURL: resp.PaymentURL,
		OrderID:    resp.OrderID,
	}
}

func checkCreateResponse(resp *gatewaytypes.CreatePaymentResponse) *internal.AppError {
	if !resp.Success || resp.Error != "" {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "Payment could not be created"
		}
		return internal.NewApplicationError(msg, internal.ErrCodeRemoteRejected)
	}
	if resp.PaymentURL == "" {
		return internal.NewApplicationError("Payment URL missing from response", internal.ErrCodeMalformedResponse)
	}
	if resp.OrderID == "" {
		return internal.NewApplicationError("Order id missing from response", internal.ErrCodeMalformedResponse)
	}
	return nil
}

// CheckStatus is best effort: any failure, or a gateway without a status endpoint, yields nil.
func (c *Client) CheckStatus(ctx context.Context, orderID string) *gatewaytypes.StatusResponse {
	if !c.SupportsStatus() || orderID == "" {
		return nil
	}

	start := time.Now()
	var resp gatewaytypes.StatusResponse
	appErr := c.caller.Call(ctx, c.statusPath, gatewaytypes.StatusRequest{OrderID: orderID}, statusSchema, &resp)
	metrics.RemoteLatency.WithLabelValues("check_status").Observe(time.Since(start).Seconds())

	if appErr != nil {
		c.logger.Warn("status check failed", "order_id", orderID, "error", appErr, "error_type", appErr.Type)
		return nil
	}
	if !resp.Success {
		c.logger.Warn("status check reported failure", "order_id", orderID, "message", resp.Message)
		return nil
	}

	if resp.OrderID == "" {
		resp.OrderID = orderID
	}
	resp.Canonical = gatewaytypes.MapProviderStatus(resp.Status)

	c.logger.Info("status checked",
		"order_id", orderID,
		"provider_status", resp.Status,
		"status", resp.Canonical)

	return &resp
}
