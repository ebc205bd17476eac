package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/wallet-payments/internal/core/events"
	"github.com/frahmantamala/wallet-payments/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test events onto the bus and watch what is forwarded to NATS`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus, forwarding it to NATS when --nats is set`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var listenEventCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print events forwarded to NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listenEvents()
	},
}

var (
	eventData   string
	eventNATS   string
	eventPrefix string
)

func publishTestEvent(eventType string) error {
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if eventNATS != "" {
		conn, err := events.ConnectNATS(eventNATS, "wallet-payments-cli")
		if err != nil {
			return err
		}
		defer conn.Close()
		events.NewNATSForwarder(conn, eventPrefix, lg).Attach(eventBus, eventType)
		defer func() { _ = conn.Flush() }()
	}

	testEvent := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	if err := eventBus.Publish(context.Background(), testEvent); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	eventBus.Wait()

	lg.Info("test event published successfully")
	return nil
}

func listenEvents() error {
	if eventNATS == "" {
		return fmt.Errorf("--nats is required")
	}
	lg := logger.LoggerWrapper()

	conn, err := events.ConnectNATS(eventNATS, "wallet-payments-listener")
	if err != nil {
		return err
	}
	defer conn.Close()

	subject := ">"
	if eventPrefix != "" {
		subject = eventPrefix + ".>"
	}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		fmt.Fprintf(os.Stdout, "%s %s\n", msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	lg.Info("listening for events. Press Ctrl+C to stop.", "subject", subject)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	lg.Info("event listener stopped")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	eventCmd.PersistentFlags().StringVar(&eventNATS, "nats", os.Getenv("NATS_URL"), "NATS server url")
	eventCmd.PersistentFlags().StringVar(&eventPrefix, "prefix", "wallet", "subject prefix")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(listenEventCmd)
}
