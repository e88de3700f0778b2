package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ActionCmd creates the action command, recording a chase attempt.
func ActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action <chase-id>",
		Short: "Record a chase action",
		Long:  "Records that the item was chased. Pending and overdue items move to sent and the chase count goes up.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAction(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

// AckCmd creates the ack command, acknowledging a chase item.
func AckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ack <chase-id>",
		Short: "Acknowledge a chase item",
		Long:  "Closes a chase item after the client or provider responded.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAck(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runAction(cmd *cobra.Command, chaseID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/chases/"+chaseID+"/actions", nil)
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}

	var chase Chase
	if err := json.Unmarshal(resp.Data, &chase); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chase, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Recorded chase action for %s\n", chase.ID)
	fmt.Printf("Status: %s\n", chase.Status)
	fmt.Printf("Chase count: %d\n", chase.ChaseCount)
	return nil
}

func runAck(cmd *cobra.Command, chaseID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/chases/"+chaseID+"/ack", nil)
	if err != nil {
		return fmt.Errorf("failed to acknowledge chase: %w", err)
	}

	var chase Chase
	if err := json.Unmarshal(resp.Data, &chase); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chase, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Acknowledged chase %s\n", chase.ID)
	if chase.AcknowledgedAt != "" {
		fmt.Printf("Acknowledged at: %s\n", chase.AcknowledgedAt)
	}
	return nil
}
