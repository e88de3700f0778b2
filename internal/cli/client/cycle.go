package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RunCycleAPIRequest represents the cycle API request.
type RunCycleAPIRequest struct {
	Mode string `json:"mode,omitempty"`
}

// CycleAction represents one dispatched action in a cycle.
type CycleAction struct {
	ItemID    string `json:"item_id"`
	ClientRef string `json:"client_ref"`
	Channel   string `json:"channel"`
	Priority  string `json:"priority"`
	Timing    string `json:"timing"`
	Message   string `json:"message"`
	Rationale string `json:"rationale,omitempty"`
}

// CycleStats represents the summary of a cycle run.
type CycleStats struct {
	Mode        string `json:"mode"`
	ItemsScored int    `json:"items_scored"`
	Dispatched  int    `json:"dispatched"`
	Degraded    bool   `json:"degraded"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// CycleAPIResponse represents the cycle API response.
type CycleAPIResponse struct {
	Actions []CycleAction `json:"actions"`
	Stats   CycleStats    `json:"stats"`
}

// DashboardAPIResponse represents the dashboard API response.
type DashboardAPIResponse struct {
	ActiveChases  int            `json:"active_chases"`
	OverdueChases int            `json:"overdue_chases"`
	HighPriority  int            `json:"high_priority"`
	StuckRisk     int            `json:"stuck_risk"`
	AvgStuckScore float64        `json:"avg_stuck_score"`
	ByType        map[string]int `json:"by_type"`
	SnapshotAt    string         `json:"snapshot_at"`
}

// Communication represents one archived dispatch.
type Communication struct {
	ID        string `json:"id"`
	ChaseID   string `json:"chase_id"`
	ClientRef string `json:"client_ref"`
	Channel   string `json:"channel"`
	Priority  string `json:"priority"`
	Message   string `json:"message"`
	Rationale string `json:"rationale,omitempty"`
	SentAt    string `json:"sent_at"`
}

// CycleCmd creates the cycle command.
func CycleCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run a chase cycle",
		Long:  "Runs one chase cycle: scores the book, selects actions, and dispatches them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCycle(cmd, mode, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Cycle mode (rule_based or llm_assisted, default rule_based)")

	return cmd
}

// DashboardCmd creates the dashboard command.
func DashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show chase book stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDashboard(cmd, outputJSON)
		},
	}

	return cmd
}

// CommunicationsCmd creates the communications command.
func CommunicationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "communications",
		Short: "List sent communications",
		Long:  "Lists the firm's dispatched communications, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCommunications(cmd, limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of results")

	return cmd
}

func runCycle(cmd *cobra.Command, mode string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/cycles", RunCycleAPIRequest{Mode: mode})
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	var cycleResp CycleAPIResponse
	if err := json.Unmarshal(resp.Data, &cycleResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(cycleResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Cycle complete (%s): %d scored, %d dispatched\n",
		cycleResp.Stats.Mode, cycleResp.Stats.ItemsScored, cycleResp.Stats.Dispatched)
	if cycleResp.Stats.Degraded {
		fmt.Println("Note: reasoning was unavailable, cycle fell back to rule-based selection")
	}
	if len(cycleResp.Actions) > 0 {
		fmt.Println()
		for i, action := range cycleResp.Actions {
			fmt.Printf("%d. %s [%s] via %s, %s\n", i+1, action.ClientRef, action.Priority, action.Channel, action.Timing)
			fmt.Printf("   %s\n", action.Message)
			if action.Rationale != "" {
				fmt.Printf("   Rationale: %s\n", action.Rationale)
			}
			if i < len(cycleResp.Actions)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}

func runDashboard(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/dashboard")
	if err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}

	var dash DashboardAPIResponse
	if err := json.Unmarshal(resp.Data, &dash); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(dash, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Active chases: %d\n", dash.ActiveChases)
	fmt.Printf("Overdue: %d\n", dash.OverdueChases)
	fmt.Printf("High priority: %d\n", dash.HighPriority)
	fmt.Printf("Stuck risk: %d\n", dash.StuckRisk)
	fmt.Printf("Avg stuck score: %.2f\n", dash.AvgStuckScore)
	if len(dash.ByType) > 0 {
		fmt.Println("By type:")
		for chaseType, count := range dash.ByType {
			fmt.Printf("  %s: %d\n", chaseType, count)
		}
	}
	fmt.Printf("Snapshot at: %s\n", dash.SnapshotAt)

	return nil
}

func runCommunications(cmd *cobra.Command, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/communications?limit=%d", limit))
	if err != nil {
		return fmt.Errorf("failed to list communications: %w", err)
	}

	var comms []Communication
	if err := json.Unmarshal(resp.Data, &comms); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(comms, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(comms) == 0 {
		fmt.Println("No communications sent yet.")
		return nil
	}

	fmt.Printf("Found %d communications:\n\n", len(comms))
	for i, comm := range comms {
		fmt.Printf("%d. %s via %s [%s] at %s\n", i+1, comm.ClientRef, comm.Channel, comm.Priority, comm.SentAt)
		fmt.Printf("   %s\n", comm.Message)
		fmt.Printf("   Chase: %s\n", comm.ChaseID)
		if i < len(comms)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
