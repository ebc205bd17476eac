package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep pending payment orders moving toward a final status.`,
}

var reconcileWorkerCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile pending payment orders",
	Long: `Check the status of every recorded pending order and clear those that have settled.
Gateways without a status endpoint stay pending until the user returns from the payment page.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReconcileWorker()
	},
}

var (
	reconcileUsers    []string
	reconcileToken    string
	reconcileOnce     bool
	reconcileInterval time.Duration
	reconcileAttempts int
)

func startReconcileWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if reconcileInterval > 0 {
		config.Reconcile.Interval = reconcileInterval
	}
	if reconcileAttempts > 0 {
		config.Reconcile.MaxAttempts = reconcileAttempts
	}

	app, err := newApp(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users := reconcileUsers
	if len(users) == 0 {
		// anonymous slot
		users = []string{""}
	}

	app.Logger.Info("reconcile worker started",
		"users", len(users),
		"interval", config.Reconcile.Interval,
		"max_attempts", config.Reconcile.MaxAttempts,
		"once", reconcileOnce)

	if reconcileOnce {
		reconcileSweep(ctx, app, app.Poller, users)
		return
	}

	// each sweep checks once; the ticker provides the retries
	single := deposit.NewPoller(app.Deposits, config.Reconcile.Interval, 1, app.Logger)
	ticker := time.NewTicker(config.Reconcile.Interval)
	defer ticker.Stop()

	for {
		reconcileSweep(ctx, app, single, users)
		select {
		case <-ctx.Done():
			app.Logger.Info("received signal, shutting down reconcile worker")
			return
		case <-ticker.C:
		}
	}
}

func reconcileSweep(ctx context.Context, app *App, poller *deposit.Poller, users []string) {
	gateways := make([]gatewaytypes.GatewayID, 0, len(app.Gateways))
	for _, gw := range app.Gateways {
		if gw.SupportsStatus() {
			gateways = append(gateways, gw.Gateway())
		}
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		outcomes := poller.Run(withCaller(ctx, userID, reconcileToken), gateways...)
		for _, o := range outcomes {
			app.Logger.Info("reconcile result",
				"user_id", userID,
				"gateway", o.GatewayID.String(),
				"order_id", o.OrderID,
				"status", o.Status,
				"transaction_id", o.TransactionID)
		}
	}
}

func init() {
	reconcileWorkerCmd.Flags().StringSliceVarP(&reconcileUsers, "user", "u", nil, "user ids whose pending orders are checked (repeatable)")
	reconcileWorkerCmd.Flags().StringVar(&reconcileToken, "token", "", "bearer token forwarded to the payment backend")
	reconcileWorkerCmd.Flags().BoolVar(&reconcileOnce, "once", false, "watch each order up to max attempts, then exit")
	reconcileWorkerCmd.Flags().DurationVar(&reconcileInterval, "interval", 0, "time between checks (overrides config)")
	reconcileWorkerCmd.Flags().IntVar(&reconcileAttempts, "max-attempts", 0, "checks per order with --once (overrides config)")

	workerCmd.AddCommand(reconcileWorkerCmd)
}
