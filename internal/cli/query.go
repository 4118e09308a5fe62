package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LeJamon/goSwapd/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	// Query flags
	serverURL string
	token     string
	timeout   time.Duration
)

// queryCmd represents the query command group
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a running server",
	Long:  `Call the JSON-RPC methods of a running swapd server and print the result.`,
}

func init() {
	queryCmd.PersistentFlags().StringVar(&serverURL, "url", "http://127.0.0.1:5005/", "server JSON-RPC endpoint")
	queryCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token identifying the caller")
	queryCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	queryCmd.AddCommand(
		queryOffersCmd,
		queryEscrowCmd,
		queryOfferCmd,
		queryPendingCmd,
		queryHistoryCmd,
		queryInfoCmd,
	)
	rootCmd.AddCommand(queryCmd)
}

// callMethod calls method on the server and pretty prints the result
func callMethod(cmd *cobra.Command, method string, params interface{}) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var result map[string]interface{}
	client := rpc.NewClient(serverURL, token, timeout)
	if err := client.Call(ctx, method, params, &result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	prettyJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(prettyJSON))
	return nil
}

var queryOffersCmd = &cobra.Command{
	Use:   "offers <account>",
	Short: "List the live offers an account takes part in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expand, _ := cmd.Flags().GetBool("expand")
		return callMethod(cmd, "account_offers", map[string]interface{}{
			"account": args[0],
			"expand":  expand,
		})
	},
}

var queryEscrowCmd = &cobra.Command{
	Use:   "escrow <account>",
	Short: "List the assets held in escrow for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callMethod(cmd, "account_escrow", map[string]interface{}{"account": args[0]})
	},
}

var queryOfferCmd = &cobra.Command{
	Use:   "offer <offer_id>",
	Short: "Show a live offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callMethod(cmd, "offer_info", map[string]interface{}{"offer_id": args[0]})
	},
}

var queryPendingCmd = &cobra.Command{
	Use:   "pending <pending_id>",
	Short: "Show a pending offer creation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callMethod(cmd, "pending_info", map[string]interface{}{"pending_id": args[0]})
	},
}

var queryHistoryCmd = &cobra.Command{
	Use:   "history <offer_id>",
	Short: "Show the recorded lifecycle events of an offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callMethod(cmd, "offer_history", map[string]interface{}{"offer_id": args[0]})
	},
}

var queryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show server information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callMethod(cmd, "server_info", nil)
	},
}

func init() {
	queryOffersCmd.Flags().Bool("expand", false, "return full offer records")
}
