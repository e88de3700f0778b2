package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ScoredChase represents a scored chase item returned by the score API.
type ScoredChase struct {
	Item        Chase   `json:"item"`
	Urgency     float64 `json:"urgency"`
	Stuck       float64 `json:"stuck"`
	Composite   float64 `json:"composite"`
	Priority    string  `json:"priority"`
	DaysOverdue int     `json:"days_overdue"`
}

// ScoredListingResponse represents the score API response.
type ScoredListingResponse struct {
	Scored          []ScoredChase    `json:"scored"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ScoreCmd creates the score command.
func ScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score the chase book and get recommendations",
		Long:  "Runs the scoring pass over the firm's open chase book and returns ranked recommendations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runScore(cmd, outputJSON)
		},
	}

	return cmd
}

func runScore(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/chases/score", nil)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	var listing ScoredListingResponse
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listing, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listing.Recommendations) == 0 {
		fmt.Println("No open chases to score.")
		return nil
	}

	fmt.Printf("Scored %d chases. Recommendations (highest priority first):\n\n", len(listing.Scored))
	for i, rec := range listing.Recommendations {
		fmt.Printf("%d. %s [%s] via %s, %s\n", i+1, rec.ClientRef, rec.Priority, rec.Channel, rec.Timing)
		fmt.Printf("   %s\n", rec.Message)
		if rec.Rationale != "" {
			fmt.Printf("   Rationale: %s\n", rec.Rationale)
		}
		fmt.Printf("   ID: %s\n", rec.ItemID)
		if i < len(listing.Recommendations)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
