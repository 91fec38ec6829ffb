package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// LoginCmd creates the login command
func LoginCmd() *cobra.Command {
	var (
		username string
		password string
		apiToken string
		apiURL   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the order desk API",
		Long: `Exchange a username and password for an API token, or store a token directly
with --token. The token and URL are kept in the global config
(~/.config/orderdesk/config.json).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, username, password, apiToken, apiURL)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&apiToken, "token", "", "Store this API token without signing in")
	cmd.Flags().StringVar(&apiURL, "url", "", "API URL (default from env or config)")

	return cmd
}

// LogoutCmd creates the logout command
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Long:  "Remove stored credentials from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Println("Successfully logged out")
			return nil
		},
	}
}

// StatusCmd creates the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display current authentication source and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagToken, _ := cmd.Flags().GetString("api-token")
			flagURL, _ := cmd.Flags().GetString("api-url")
			source, tok, apiURL := GetCredentialSource(flagToken, flagURL)

			if outputJSON(cmd) {
				return outputStatusJSON(source, tok, apiURL)
			}
			return outputStatusText(source, tok, apiURL)
		},
	}
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func runLogin(cmd *cobra.Command, username, password, apiToken, apiURL string) error {
	if apiURL == "" {
		_, _, apiURL = GetCredentialSource("", "")
	}

	if apiToken == "" {
		var err error
		if username == "" {
			if username, err = prompt("Username: "); err != nil {
				return fmt.Errorf("failed to read username: %w", err)
			}
		}
		if password == "" {
			if password, err = prompt("Password: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if username == "" || password == "" {
			return fmt.Errorf("username and password are required")
		}

		desk := NewDesk(apiURL, "", SourceNone)
		defer desk.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := desk.User.Login(ctx, username, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		apiToken, _ = desk.Tokens.Current()
	}

	err := UpdateGlobalConfig(func(c *GlobalConfig) {
		c.APIURL = apiURL
		c.APIToken = apiToken
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Println("Successfully logged in")
	return nil
}

func outputStatusJSON(source CredentialSource, tok, apiURL string) error {
	status := map[string]interface{}{
		"authenticated": source != SourceNone,
		"source":        string(source),
		"api_url":       apiURL,
	}
	if source != SourceNone {
		status["api_token"] = maskToken(tok)
	}
	if crm, err := (configCRMStore{}).LoadCRMID(); err == nil && crm != "" {
		status["crm_id"] = crm
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func outputStatusText(source CredentialSource, tok, apiURL string) error {
	if source == SourceNone {
		fmt.Println("Not authenticated")
		fmt.Println("Run 'orderdesk login' to authenticate")
		return nil
	}

	fmt.Printf("Authenticated: yes\n")
	fmt.Printf("Source: %s\n", source)
	fmt.Printf("API Token: %s\n", maskToken(tok))
	fmt.Printf("API URL: %s\n", apiURL)
	if crm, err := (configCRMStore{}).LoadCRMID(); err == nil && crm != "" {
		fmt.Printf("CRM ID: %s\n", crm)
	}

	return nil
}

func maskToken(tok string) string {
	if len(tok) < 12 {
		return "***"
	}
	return tok[:4] + "..." + tok[len(tok)-4:]
}
