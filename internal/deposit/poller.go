package deposit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
)

// Poller re-checks a pending order until it settles, the attempts run out or ctx ends.
type Poller struct {
	service     *Service
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

func NewPoller(service *Service, interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Poller{
		service:     service,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Watch returns the last outcome seen, or nil when nothing was pending.
func (p *Poller) Watch(ctx context.Context, gatewayID gatewaytypes.GatewayID) (*Outcome, error) {
	var last *Outcome

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		outcome, err := p.service.Resume(ctx, gatewayID)
		if err != nil {
			return last, err
		}
		if outcome == nil {
			return last, nil
		}
		last = outcome
		if outcome.Terminal() {
			return last, nil
		}
		if !p.service.SupportsStatus(gatewayID) {
			p.logger.Debug("gateway cannot be polled, waiting for the user to return",
				"gateway", gatewayID.String(),
				"order_id", outcome.OrderID)
			return last, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		p.logger.Debug("order pending, waiting",
			"gateway", gatewayID.String(),
			"order_id", outcome.OrderID,
			"attempt", attempt,
			"next_in", p.interval)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}

	if last != nil {
		p.logger.Warn("order still pending after all attempts",
			"gateway", gatewayID.String(),
			"order_id", last.OrderID,
			"attempts", p.maxAttempts)
	}
	return last, nil
}

// Run watches every gateway concurrently and returns the outcomes that were found.
func (p *Poller) Run(ctx context.Context, gatewayIDs ...gatewaytypes.GatewayID) []Outcome {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes []Outcome
	)

	for _, gatewayID := range gatewayIDs {
		wg.Add(1)
		go func(id gatewaytypes.GatewayID) {
			defer wg.Done()
			outcome, err := p.Watch(ctx, id)
			if err != nil {
				p.logger.Error("reconcile watch stopped", "gateway", id.String(), "error", err)
			}
			if outcome == nil {
				return
			}
			mu.Lock()
			outcomes = append(outcomes, *outcome)
			mu.Unlock()
		}(gatewayID)
	}

	wg.Wait()
	return outcomes
}
