package main

import (
	"fmt"
	"os"

	"github.com/adviserops/chaser/internal/cli"
	"github.com/adviserops/chaser/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "chaser",
		Short: "Chaser CLI - Chase prioritization for adviser firms",
		Long: `Chaser CLI manages chase items, scoring, and cycles for an adviser firm.

Environment variables:
  CHASER_API_KEY   API key for authentication (required)
  CHASER_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ActionCmd())
	rootCmd.AddCommand(client.AckCmd())
	rootCmd.AddCommand(client.ScoreCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.CycleCmd())
	rootCmd.AddCommand(client.DashboardCmd())
	rootCmd.AddCommand(client.CommunicationsCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
