package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

// OrdersCmd creates the orders parent command
func OrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Work with laboratory orders",
	}

	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(ordersGetCmd())
	cmd.AddCommand(ordersCreateCmd())
	cmd.AddCommand(ordersActionCmd())
	cmd.AddCommand(ordersEventsCmd())

	return cmd
}

func ordersListCmd() *cobra.Command {
	var (
		page    int
		by      string
		term    string
		exact   bool
		uncache bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
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

			if err := desk.Orders.GetOrders(ctx, q, page, uncache); err != nil {
				return fmt.Errorf("failed to list orders: %w", err)
			}
			orders, _ := desk.Orders.OrdersPage(page)

			if outputJSON(cmd) {
				return printJSON(map[string]any{
					"page":   page,
					"count":  desk.Orders.Count(),
					"orders": orders,
				})
			}

			if len(orders) == 0 {
				fmt.Println("No orders found.")
				return nil
			}
			fmt.Printf("%d orders, page %d:\n\n", desk.Orders.Count(), page)
			for _, o := range orders {
				fmt.Println(orderLine(o))
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

func orderLine(o domain.Order) string {
	parts := []string{fmt.Sprintf("#%d", o.ID)}
	if o.Patient != nil {
		parts = append(parts, o.Patient.Name)
	}
	if o.Doctor != nil {
		parts = append(parts, o.Doctor.Name)
	}
	if o.Status != nil {
		parts = append(parts, "["+o.Status.Name+"]")
	}
	return strings.Join(parts, "  ")
}

func ordersGetCmd() *cobra.Command {
	var events, meds, tests bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an order",
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

			order, err := desk.Orders.GetOrder(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get order: %w", err)
			}
			if events {
				if err := desk.Orders.GetOrderEvents(ctx, order); err != nil {
					return fmt.Errorf("failed to load events: %w", err)
				}
			}
			if meds {
				if err := desk.Orders.GetOrderMeds(ctx, order); err != nil {
					return fmt.Errorf("failed to load medications: %w", err)
				}
			}
			if tests {
				if err := desk.Orders.GetOrderTests(ctx, order); err != nil {
					return fmt.Errorf("failed to load tests: %w", err)
				}
			}
			return printJSON(order)
		},
	}

	cmd.Flags().BoolVar(&events, "events", false, "Include the event timeline")
	cmd.Flags().BoolVar(&meds, "meds", false, "Include the medication set")
	cmd.Flags().BoolVar(&tests, "tests", false, "Include the order set panels")

	return cmd
}

func ordersCreateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create --file <order.json>",
		Short: "Create an order from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var order domain.Order
			if err := json.Unmarshal(data, &order); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}

			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := desk.Orders.CreateOrder(ctx, &order)
			if err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}

			if outputJSON(cmd) {
				return printJSON(map[string]int64{"id": id})
			}
			fmt.Printf("Created order #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Order JSON file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func ordersActionCmd() *cobra.Command {
	actions := make([]string, 0, len(service.OrderActions()))
	for _, a := range service.OrderActions() {
		actions = append(actions, string(a))
	}

	return &cobra.Command{
		Use:       "action <id> <action>",
		Short:     "Run a workflow action against an order",
		Long:      "Actions: " + strings.Join(actions, ", ") + ".",
		Args:      cobra.ExactArgs(2),
		ValidArgs: actions,
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

			result, err := desk.Orders.RunAction(ctx, id, service.OrderAction(args[1]))
			if err != nil {
				return fmt.Errorf("%s failed: %w", args[1], err)
			}
			if result == nil {
				fmt.Printf("%s: done\n", args[1])
				return nil
			}
			return printJSON(result)
		},
	}
}

func ordersEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <id>",
		Short: "Show an order's event timeline",
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

			order := &domain.Order{ID: id}
			if err := desk.Orders.GetOrderEvents(ctx, order); err != nil {
				return fmt.Errorf("failed to load events: %w", err)
			}

			if outputJSON(cmd) {
				return printJSON(order.Events)
			}
			if order.Status != nil {
				fmt.Printf("Status: %s\n\n", order.Status.Name)
			}
			for _, ev := range order.Events {
				mark := " "
				switch {
				case ev.Active:
					mark = "*"
				case ev.Skipped:
					mark = "-"
				}
				line := fmt.Sprintf("%s %s", mark, ev.Name)
				if ev.Time != nil {
					line += "  " + ev.Time.Format("2006-01-02 15:04")
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
