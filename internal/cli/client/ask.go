package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryAPIRequest represents the query API request.
type QueryAPIRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
}

// QueryAPIResponse represents the query API response.
type QueryAPIResponse struct {
	Answer     string                   `json:"answer"`
	Intent     string                   `json:"intent,omitempty"`
	Confidence float64                  `json:"confidence"`
	Rows       []map[string]interface{} `json:"rows,omitempty"`
	Rounds     int                      `json:"rounds"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the client book",
		Long: `Asks a natural language question answered over the firm's chase and client data.

Examples:
  chaser ask "which clients have blocking chases open?"
  chaser ask --mode rule_based "who has been waiting longest on a provider?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, strings.Join(args, " "), mode, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Query mode (rule_based or llm_assisted, default llm_assisted)")

	return cmd
}

func runAsk(cmd *cobra.Command, query, mode string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/queries", QueryAPIRequest{Query: query, Mode: mode})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryAPIResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(queryResp.Answer)
	if len(queryResp.Rows) > 0 {
		fmt.Println()
		for _, row := range queryResp.Rows {
			rowJSON, _ := json.Marshal(row)
			fmt.Printf("  %s\n", string(rowJSON))
		}
	}

	return nil
}
