package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd groups the credential management commands.
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Login, logout, and check authentication status for the chaser CLI",
	}

	var apiKey, apiURL string
	login := &cobra.Command{
		Use:   "login",
		Short: "Login with API key",
		Long:  "Store API key and URL in the global config (~/.config/chaser/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authLogin(apiKey, apiURL)
		},
	}
	login.Flags().StringVar(&apiKey, "api-key", "", "API key (chs_...)")
	login.Flags().StringVar(&apiURL, "url", "http://localhost:8080", "API URL")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove stored credentials from the global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authLogout()
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display the active credential source and masked credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("output")
			return authStatus(asJSON)
		},
	}
	status.Flags().Bool("output", false, "Output as JSON")

	cmd.AddCommand(login, logout, status)
	return cmd
}

func authLogin(apiKey, apiURL string) error {
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(line)
	}

	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: chs_ + 64 hex characters)")
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Println("Successfully logged in")
	return nil
}

func authLogout() error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	fmt.Println("Successfully logged out")
	return nil
}

func authStatus(asJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource("", "")

	if asJSON {
		status := map[string]interface{}{
			"authenticated": source != SourceNone,
			"source":        string(source),
		}
		if source != SourceNone {
			status["api_key"] = maskAPIKey(apiKey)
			status["api_url"] = apiURL
		}
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if source == SourceNone {
		fmt.Println("Not authenticated")
		fmt.Println("Run 'chaser auth login' to authenticate")
		return nil
	}

	fmt.Printf("Authenticated: yes\n")
	fmt.Printf("Source: %s\n", source)
	fmt.Printf("API Key: %s\n", maskAPIKey(apiKey))
	fmt.Printf("API URL: %s\n", apiURL)
	return nil
}

// maskAPIKey keeps the prefix and last four characters for display.
func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
