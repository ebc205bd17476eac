package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gatewaytypes "github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Run the deposit flow from the command line",
	Long:  `Start a gateway deposit, resume a pending one, or dismiss it.`,
}

var depositStartCmd = &cobra.Command{
	Use:   "start [gateway] [amount]",
	Short: "Initiate a deposit and record it as pending",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDepositService(args[0], func(ctx context.Context, svc *deposit.Service, gw gatewaytypes.GatewayID) (any, error) {
			amount, err := deposit.StartDepositRequest{Amount: json.Number(args[1])}.Validate()
			if err != nil {
				return nil, err
			}
			result := svc.Start(ctx, gw, amount)
			if !result.Success {
				return result, fmt.Errorf("deposit failed: %s", result.Error)
			}
			return result, nil
		})
	},
}

var depositResumeCmd = &cobra.Command{
	Use:   "resume [gateway]",
	Short: "Check the pending order for a gateway once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDepositService(args[0], func(ctx context.Context, svc *deposit.Service, gw gatewaytypes.GatewayID) (any, error) {
			outcome, err := svc.Resume(ctx, gw)
			if err != nil {
				return nil, err
			}
			if outcome == nil {
				return map[string]string{"message": "no pending order"}, nil
			}
			return deposit.NewOutcomeResponse(outcome), nil
		})
	},
}

var depositDismissCmd = &cobra.Command{
	Use:   "dismiss [gateway]",
	Short: "Forget the pending order for a gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDepositService(args[0], func(ctx context.Context, svc *deposit.Service, gw gatewaytypes.GatewayID) (any, error) {
			if err := svc.Dismiss(ctx, gw); err != nil {
				return nil, err
			}
			return map[string]string{"message": "pending order dismissed"}, nil
		})
	},
}

var (
	depositUser  string
	depositToken string
)

func withDepositService(rawGateway string, fn func(context.Context, *deposit.Service, gatewaytypes.GatewayID) (any, error)) error {
	gw, ok := gatewaytypes.ParseGatewayID(rawGateway)
	if !ok {
		return fmt.Errorf("unknown gateway %q", rawGateway)
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app, err := newApp(config)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	out, err := fn(withCaller(context.Background(), depositUser, depositToken), app.Deposits, gw)
	if out != nil {
		printJSON(out)
	}
	return err
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func init() {
	depositCmd.PersistentFlags().StringVarP(&depositUser, "user", "u", "", "user id owning the pending order slot")
	depositCmd.PersistentFlags().StringVar(&depositToken, "token", "", "bearer token forwarded to the payment backend")

	depositCmd.AddCommand(depositStartCmd)
	depositCmd.AddCommand(depositResumeCmd)
	depositCmd.AddCommand(depositDismissCmd)
}
