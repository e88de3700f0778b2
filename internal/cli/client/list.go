package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ChaseListResponse represents the list API response.
type ChaseListResponse struct {
	Items   []Chase `json:"items"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more"`
}

// ListCmd creates the chase list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chase items",
		Long:  "Lists the firm's chase items, newest first, with cursor pagination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/chases?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ChaseListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No chase items found.")
		return nil
	}

	fmt.Printf("Found %d chase items:\n\n", len(listResp.Items))
	for i, chase := range listResp.Items {
		fmt.Printf("%d. %s [%s] %s\n", i+1, chase.ClientRef, chase.Type, chase.Status)
		if chase.ProviderName != "" {
			fmt.Printf("   Provider: %s\n", chase.ProviderName)
		}
		if chase.Subject != "" {
			fmt.Printf("   Subject: %s\n", chase.Subject)
		}
		if chase.DaysOverdue > 0 {
			fmt.Printf("   Overdue: %d days, chased %d times\n", chase.DaysOverdue, chase.ChaseCount)
		}
		if chase.Blocking {
			fmt.Printf("   Blocking advice work\n")
		}
		fmt.Printf("   ID: %s\n", chase.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
