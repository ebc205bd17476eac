// Package wallet sends ledger actions to the wallet backend and folds every reply,
// good or bad, into one ActionResult.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/events"
	"github.com/frahmantamala/wallet-payments/internal/metrics"
	"github.com/frahmantamala/wallet-payments/internal/remote"
)

const defaultFailureMessage = "Wallet action failed"

type ActionResult struct {
	OK            bool             `json:"ok"`
	Error         string           `json:"error,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	NewBalance    json.Number      `json:"newBalance,omitempty"`
	Message       string           `json:"message,omitempty"`
	BankCard      map[string]any   `json:"bankCard,omitempty"`
}

// ledgerResponse is the decoded reply. Success is a pointer because the backend may omit it.
type ledgerResponse struct {
	Success       *bool            `json:"success"`
	Error         string           `json:"error"`
	TransactionID string           `json:"transactionId"`
	NewBalance    *decimal.Decimal `json:"newBalance"`
	Message       string           `json:"message"`
	BankCard      map[string]any   `json:"bankCard"`
}

type Dispatcher struct {
	path     string
	caller   *remote.Client
	events   events.Publisher
	logger   *slog.Logger
	inflight atomic.Int32
}

func NewDispatcher(path string, caller *remote.Client, publisher events.Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		path:   path,
		caller: caller,
		events: publisher,
		logger: logger,
	}
}

// IsBusy reports whether any dispatch is outstanding. Concurrent dispatches are allowed.
func (d *Dispatcher) IsBusy() bool {
	return d.inflight.Load() > 0
}

func (d *Dispatcher) Dispatch(ctx context.Context, action Action) (result ActionResult) {
	if action == nil {
		return ActionResult{Error: internal.UserMessage(internal.NewValidationError("Unknown wallet action", internal.ErrCodeInvalidAction))}
	}

	tag := action.Tag()
	logger := d.logger.With("action", tag)

	if appErr := action.Validate(); appErr != nil {
		logger.Info("wallet action rejected", "error", appErr)
		metrics.LedgerDispatches.WithLabelValues(tag, metrics.OutcomeRejected).Inc()
		return ActionResult{Error: internal.UserMessage(appErr)}
	}

	d.inflight.Add(1)
	defer d.inflight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("wallet action panicked", "panic", r)
			result = ActionResult{Error: internal.UserMessage(internal.NewUnexpectedError(fmt.Errorf("panic: %v", r)))}
			metrics.LedgerDispatches.WithLabelValues(tag, metrics.OutcomeFailed).Inc()
		}
	}()

	logger.Info("dispatching wallet action", "fields", redacted(action))

	start := time.Now()
	var resp ledgerResponse
	appErr := d.caller.Call(ctx, d.path, payload(action), ledgerSchema, &resp)
	metrics.RemoteLatency.WithLabelValues("ledger_" + tag).Observe(time.Since(start).Seconds())

	if appErr == nil {
		appErr = checkLedgerResponse(&resp)
	}
	if appErr != nil {
		logger.Error("wallet action failed", "error", appErr, "error_type", appErr.Type)
		metrics.LedgerDispatches.WithLabelValues(tag, metrics.OutcomeFailed).Inc()
		d.publish(ctx, events.NewWalletActionEvent(tag, false, "", internal.UserIDFromContext(ctx)))
		return ActionResult{Error: internal.UserMessage(appErr)}
	}

	logger.Info("wallet action completed", "transaction_id", resp.TransactionID)
	metrics.LedgerDispatches.WithLabelValues(tag, metrics.OutcomeSuccess).Inc()
	d.publish(ctx, events.NewWalletActionEvent(tag, true, resp.TransactionID, internal.UserIDFromContext(ctx)))

	return ActionResult{
		OK:            true,
		TransactionID: resp.TransactionID,
		NewBalance:    balanceField(resp.NewBalance),
		Message:       resp.Message,
		BankCard:      resp.BankCard,
	}
}

func balanceField(balance *decimal.Decimal) json.Number {
	if balance == nil {
		return ""
	}
	return amountField(*balance)
}

func checkLedgerResponse(resp *ledgerResponse) *internal.AppError {
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return internal.NewApplicationError(msg, internal.ErrCodeRemoteRejected)
	}
	if resp.Success != nil && !*resp.Success {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = defaultFailureMessage
		}
		return internal.NewApplicationError(msg, internal.ErrCodeRemoteRejected)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, event events.Event) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(ctx, event); err != nil {
		d.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
