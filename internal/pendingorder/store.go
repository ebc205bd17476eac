package pendingorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
)

// KV is the durable medium behind the store. It must outlive the process that wrote it.
type KV interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeleteIf removes key only while it still holds exactly expected, in one atomic step.
	DeleteIf(ctx context.Context, key string, expected []byte) (deleted bool, err error)
}

// Record is what survives the redirect to the gateway.
type Record struct {
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store keeps at most one pending order per gateway (per user when the context carries one).
// Saving over an unreconciled record replaces it.
type Store struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(kv KV, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger, now: time.Now}
}

// Key builds the slot key, pending_order::<gatewayId> or pending_order::<userId>::<gatewayId>.
func Key(ctx context.Context, gatewayID paymentgateway.GatewayID) string {
	if userID := internal.UserIDFromContext(ctx); userID != "" {
		return fmt.Sprintf("pending_order::%s::%s", userID, gatewayID)
	}
	return fmt.Sprintf("pending_order::%s", gatewayID)
}

func (s *Store) Save(ctx context.Context, gatewayID paymentgateway.GatewayID, orderID string, amount decimal.Decimal) error {
	key := Key(ctx, gatewayID)

	if previous, err := s.Load(ctx, gatewayID); err == nil && previous != nil && previous.OrderID != orderID {
		s.logger.Warn("overwriting unreconciled pending order",
			"key", key,
			"superseded_order_id", previous.OrderID,
			"order_id", orderID)
	}

	value, err := json.Marshal(Record{OrderID: orderID, Amount: amount, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}

	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.Error("failed to save pending order", "error", err, "key", key, "order_id", orderID)
		return fmt.Errorf("save pending order: %w", err)
	}

	s.logger.Info("pending order saved", "key", key, "order_id", orderID, "amount", amount.String())
	return nil
}

// Load returns nil, nil when nothing is pending. An unreadable record is dropped and reported as absent.
func (s *Store) Load(ctx context.Context, gatewayID paymentgateway.GatewayID) (*Record, error) {
	key := Key(ctx, gatewayID)

	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load pending order: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record Record
	if err := json.Unmarshal(value, &record); err != nil || record.OrderID == "" {
		s.logger.Warn("discarding corrupt pending order", "key", key, "error", err)
		if delErr := s.kv.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to delete corrupt pending order", "key", key, "error", delErr)
		}
		return nil, nil
	}
	return &record, nil
}

// ClearOrder clears the slot only if it still holds orderID. A record saved after the read
// survives, so settling an old order never drops a newer one.
func (s *Store) ClearOrder(ctx context.Context, gatewayID paymentgateway.GatewayID, orderID string) (bool, error) {
	key := Key(ctx, gatewayID)

	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load pending order: %w", err)
	}
	if !ok {
		return false, nil
	}

	var record Record
	if err := json.Unmarshal(value, &record); err != nil || record.OrderID != orderID {
		return false, nil
	}

	deleted, err := s.kv.DeleteIf(ctx, key, value)
	if err != nil {
		return false, fmt.Errorf("clear pending order: %w", err)
	}
	if deleted {
		s.logger.Info("pending order cleared", "key", key, "order_id", orderID)
	} else {
		s.logger.Warn("pending order replaced while settling, keeping the newer one", "key", key, "order_id", orderID)
	}
	return deleted, nil
}

func (s *Store) Clear(ctx context.Context, gatewayID paymentgateway.GatewayID) error {
	key := Key(ctx, gatewayID)
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear pending order: %w", err)
	}
	s.logger.Info("pending order cleared", "key", key)
	return nil
}
