package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/orderdesk/internal/remote"
	"github.com/cloo-solutions/orderdesk/internal/service"
	"github.com/cloo-solutions/orderdesk/internal/token"
)

const (
	envAPIToken = "ORDERDESK_API_TOKEN"
	envAPIURL   = "ORDERDESK_API_URL"

	defaultAPIURL  = "http://localhost:8000/"
	defaultTimeout = 30 * time.Second
)

// Desk bundles the remote client and the services the commands run.
type Desk struct {
	Client *remote.Client
	Tokens *token.Stream
	Source CredentialSource
	URL    string

	Orders *service.OrderService
	Admin  *service.AdminService
	User   *service.UserService
}

// NewDeskWithCmd builds a Desk with config cascade: flag → env → global config → default.
// When a token is required and none is configured the desk is not built.
func NewDeskWithCmd(cmd *cobra.Command, requireToken bool) (*Desk, error) {
	_ = godotenv.Load()

	var flagToken, flagURL string
	if cmd != nil {
		flagToken, _ = cmd.Flags().GetString("api-token")
		flagURL, _ = cmd.Flags().GetString("api-url")
	}

	source, tok, apiURL := GetCredentialSource(flagToken, flagURL)
	if requireToken && source == SourceNone {
		return nil, fmt.Errorf("%s not set (run 'orderdesk login' or set environment variable)", envAPIToken)
	}

	return NewDesk(apiURL, tok, source), nil
}

// NewDesk builds a Desk for an explicit URL and token. An empty token leaves
// authenticated calls waiting until one is published.
func NewDesk(apiURL, tok string, source CredentialSource) *Desk {
	tokens := token.NewStream()
	if tok != "" {
		tokens.Publish(tok)
	}

	client := remote.New(apiURL, tokens, remote.WithTimeout(defaultTimeout))
	return &Desk{
		Client: client,
		Tokens: tokens,
		Source: source,
		URL:    apiURL,
		Orders: service.NewOrderService(client),
		Admin:  service.NewAdminService(client),
		User:   service.NewUserService(client, tokens, configCRMStore{}),
	}
}

// Close releases the desk's background work.
func (d *Desk) Close() {
	d.Orders.Close()
}

// commandContext bounds a command's remote calls so that a missing token
// cannot block forever.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}
	return context.WithTimeout(ctx, 2*defaultTimeout)
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(output))
	return nil
}

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}
