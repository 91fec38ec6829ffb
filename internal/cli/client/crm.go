package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CRMCmd creates the crm command
func CRMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crm [id]",
		Short: "Show or set the CRM id",
		Long:  "Without an argument prints the stored CRM id. With one, reports it to the API and stores it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				id, err := (configCRMStore{}).LoadCRMID()
				if err != nil {
					return err
				}
				if id == "" {
					fmt.Println("No CRM id set")
					return nil
				}
				fmt.Println(id)
				return nil
			}

			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := desk.User.SetCRMID(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to set CRM id: %w", err)
			}
			fmt.Printf("CRM id set to %s\n", desk.User.CRMID())
			return nil
		},
	}
}
