package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/cli"
	"github.com/cloo-solutions/orderdesk/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "orderdesk",
		Short: "Order desk CLI - laboratory orders from the terminal",
		Long: `Order desk CLI talks to the order desk REST API directly.

Environment variables:
  ORDERDESK_API_TOKEN   API token for authentication
  ORDERDESK_API_URL     API base URL (default: http://localhost:8000/)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.LoginCmd())
	rootCmd.AddCommand(client.LogoutCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.CRMCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.OrdersCmd())
	rootCmd.AddCommand(client.OrderSetsCmd())
	rootCmd.AddCommand(client.MedSetsCmd())
	rootCmd.AddCommand(client.PatientsCmd())
	rootCmd.AddCommand(client.ScheduledCmd())
	rootCmd.AddCommand(client.DownloadCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
