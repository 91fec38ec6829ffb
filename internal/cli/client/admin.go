package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/domain"
)

// OrderSetsCmd creates the order-sets parent command
func OrderSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order-sets",
		Short: "Manage order sets",
	}

	cmd.AddCommand(getByIDCmd("Show an order set", func(ctx context.Context, d *Desk, id int64) (any, error) {
		return d.Admin.GetOrderSet(ctx, id)
	}))
	cmd.AddCommand(deleteByIDCmd("order set", func(ctx context.Context, d *Desk, id int64) error {
		return d.Admin.DeleteOrderSet(ctx, id)
	}))

	return cmd
}

// MedSetsCmd creates the med-sets parent command
func MedSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "med-sets",
		Short: "Manage medication sets",
	}

	cmd.AddCommand(getByIDCmd("Show a medication set", func(ctx context.Context, d *Desk, id int64) (any, error) {
		return d.Admin.GetMedSet(ctx, id)
	}))
	cmd.AddCommand(deleteByIDCmd("medication set", func(ctx context.Context, d *Desk, id int64) error {
		return d.Admin.DeleteMedSet(ctx, id)
	}))

	return cmd
}

// PatientsCmd creates the patients parent command
func PatientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Look up test patients",
	}

	cmd.AddCommand(getByIDCmd("Show a test patient", func(ctx context.Context, d *Desk, id int64) (any, error) {
		return d.Admin.GetTestPatient(ctx, id)
	}))

	return cmd
}

// ScheduledCmd creates the scheduled parent command
func ScheduledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Manage scheduled orders",
	}

	cmd.AddCommand(scheduledListCmd())
	cmd.AddCommand(getByIDCmd("Show a scheduled order", func(ctx context.Context, d *Desk, id int64) (any, error) {
		return d.Admin.LoadScheduledOrder(ctx, id)
	}))
	cmd.AddCommand(deleteByIDCmd("scheduled order", func(ctx context.Context, d *Desk, id int64) error {
		return d.Admin.DeleteScheduledOrder(ctx, id)
	}))

	return cmd
}

func scheduledListCmd() *cobra.Command {
	var (
		page    int
		by      string
		term    string
		exact   bool
		uncache bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			q := domain.DefaultOrderQuery()
			if by != "" {
				q.SearchBy = by
			}
			q.Term = term
			q.ExactMatch = exact

			result, err := desk.Admin.SearchScheduledOrders(ctx, q, page, uncache)
			if err != nil {
				return fmt.Errorf("failed to list scheduled orders: %w", err)
			}

			if outputJSON(cmd) {
				return printJSON(result)
			}
			if len(result.List) == 0 {
				fmt.Println("No scheduled orders found.")
				return nil
			}
			fmt.Printf("%d scheduled orders, page %d:\n\n", result.Count, page)
			for _, o := range result.List {
				state := "disabled"
				if o.Enabled {
					state = "enabled"
				}
				fmt.Printf("#%d  %s day %d at %02d:00  [%s]\n", o.ID, o.Period, o.Day, o.Hour, state)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to fetch")
	cmd.Flags().StringVar(&by, "by", "", "Field to search by (default id)")
	cmd.Flags().StringVar(&term, "term", "", "Search term")
	cmd.Flags().BoolVar(&exact, "exact", false, "Match the term exactly")
	cmd.Flags().BoolVar(&uncache, "uncache", false, "Bypass the API cache")

	return cmd
}

func getByIDCmd(short string, get func(ctx context.Context, d *Desk, id int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			v, err := get(ctx, desk, id)
			if err != nil {
				return err
			}
			return printJSON(v)
		},
	}
}

func deleteByIDCmd(what string, del func(ctx context.Context, d *Desk, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + what,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := del(ctx, desk, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", what, err)
			}
			fmt.Printf("Deleted %s %d\n", what, id)
			return nil
		},
	}
}
