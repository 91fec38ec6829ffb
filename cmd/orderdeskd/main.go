package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/cli"
	"github.com/cloo-solutions/orderdesk/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orderdeskd",
		Short: "Order desk daemon",
		Long:  "Order desk backend: bridges the host page to the order desk API and caches searches",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
