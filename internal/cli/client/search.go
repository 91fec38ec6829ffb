package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

// SearchResponse is what `orderdesk search` prints with --output.
type SearchResponse struct {
	Domain string            `json:"domain"`
	Query  string            `json:"query"`
	Page   int               `json:"page"`
	Count  int               `json:"count"`
	Items  []json.RawMessage `json:"items"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		page    int
		all     bool
		uncache bool
	)

	domains := make([]string, 0, len(domain.SearchDomains()))
	for _, d := range domain.SearchDomains() {
		domains = append(domains, string(d))
	}

	cmd := &cobra.Command{
		Use:   "search <domain> <query>",
		Short: "Search a catalogue",
		Long:  "Runs a free-text search over one domain: " + strings.Join(domains, ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseSearchDomain(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()
			return runSearch(cmd, desk, d, args[1], page, all, uncache)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to fetch")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page starting at --page")
	cmd.Flags().BoolVar(&uncache, "uncache", false, "Bypass the API cache")

	return cmd
}

func runSearch(cmd *cobra.Command, desk *Desk, d domain.SearchDomain, query string, page int, all, uncache bool) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if page < 1 {
		return pagination.ErrInvalidPage
	}

	resp := SearchResponse{Domain: string(d), Query: query, Page: page}
	for {
		result, err := desk.Client.Search(ctx, d, query, page, uncache)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		resp.Count = result.Count
		resp.Items = append(resp.Items, result.List...)

		if !all || len(result.List) == 0 || pagination.Exhausted(result.Count, len(resp.Items)) {
			break
		}
		page++
	}

	if outputJSON(cmd) {
		return printJSON(resp)
	}

	if len(resp.Items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results, showing %d:\n\n", resp.Count, len(resp.Items))
	for i, item := range resp.Items {
		fmt.Printf("%d. %s\n", i+1, summarize(item))
	}
	if !all && len(resp.Items) < resp.Count {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --page %d or --all\n", resp.Page+1)
	}

	return nil
}

// summarize renders an opaque entry as "id name" when it has those fields.
func summarize(item json.RawMessage) string {
	var fields struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(item, &fields); err != nil || fields.ID == nil {
		return string(item)
	}
	if fields.Name == "" {
		return fmt.Sprintf("%v", fields.ID)
	}
	return fmt.Sprintf("%v %s", fields.ID, fields.Name)
}
