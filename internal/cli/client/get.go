package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <chase-id>",
		Short: "Get a chase item by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, chaseID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/chases/" + chaseID)
	if err != nil {
		return fmt.Errorf("failed to get chase: %w", err)
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

	printChase(&chase)
	return nil
}
