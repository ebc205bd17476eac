package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/wallet-payments/internal/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet ledger commands",
}

var walletDispatchCmd = &cobra.Command{
	Use:   "dispatch [json]",
	Short: "Send one wallet action to the ledger",
	Long: `Send one wallet action to the ledger, for example:

  wallet-payments wallet dispatch '{"action":"redeem_code","code":"WELCOME10"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req wallet.ActionRequest
		dec := json.NewDecoder(strings.NewReader(args[0]))
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			return fmt.Errorf("invalid action json: %w", err)
		}
		action, appErr := req.ToAction()
		if appErr != nil {
			return appErr
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

		result := app.Dispatcher.Dispatch(withCaller(context.Background(), walletUser, walletToken), action)
		printJSON(result)
		if !result.OK {
			return fmt.Errorf("wallet action failed: %s", result.Error)
		}
		return nil
	},
}

var (
	walletUser  string
	walletToken string
)

func init() {
	walletCmd.PersistentFlags().StringVarP(&walletUser, "user", "u", "", "user id performing the action")
	walletCmd.PersistentFlags().StringVar(&walletToken, "token", "", "bearer token forwarded to the ledger")

	walletCmd.AddCommand(walletDispatchCmd)
}
