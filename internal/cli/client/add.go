package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// CreateChaseRequest represents the create chase API request.
type CreateChaseRequest struct {
	ClientRef    string `json:"client_ref"`
	Type         string `json:"type"`
	ValueTier    string `json:"value_tier"`
	ProviderName string `json:"provider_name,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Blocking     bool   `json:"blocking,omitempty"`
	DueAt        string `json:"due_at,omitempty"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		clientRef string
		chaseType string
		valueTier string
		provider  string
		subject   string
		blocking  bool
		dueAt     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a chase item",
		Long: `Add a chase item to the firm's book.

Examples:
  # Chase a provider for a letter of authority
  chaser add --client CL-0042 --type authorization_request --tier high --provider Aviva --blocking

  # Chase a client for a signed document with a due date
  chaser add --client CL-0042 --type client_document --tier medium --subject "Signed risk questionnaire" --due 2026-09-15T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(cmd, clientRef, chaseType, valueTier, provider, subject, blocking, dueAt, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&clientRef, "client", "c", "", "Client reference (required)")
	cmd.Flags().StringVarP(&chaseType, "type", "t", "", "Chase type (authorization_request, client_document, post_advice)")
	cmd.Flags().StringVar(&valueTier, "tier", "", "Client value tier (low, medium, high)")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name (for provider-side chases)")
	cmd.Flags().StringVar(&subject, "subject", "", "What is being chased")
	cmd.Flags().BoolVar(&blocking, "blocking", false, "Item blocks downstream advice work")
	cmd.Flags().StringVar(&dueAt, "due", "", "Due date (RFC3339 format)")

	return cmd
}

func runAdd(cmd *cobra.Command, clientRef, chaseType, valueTier, provider, subject string, blocking bool, dueAt string, outputJSON bool) error {
	if clientRef == "" {
		return fmt.Errorf("--client is required")
	}
	if chaseType == "" {
		return fmt.Errorf("--type is required")
	}
	if valueTier == "" {
		return fmt.Errorf("--tier is required")
	}
	if dueAt != "" {
		if _, err := time.Parse(time.RFC3339, dueAt); err != nil {
			return fmt.Errorf("--due must be RFC3339 (e.g. 2026-09-15T00:00:00Z)")
		}
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := CreateChaseRequest{
		ClientRef:    clientRef,
		Type:         chaseType,
		ValueTier:    valueTier,
		ProviderName: provider,
		Subject:      subject,
		Blocking:     blocking,
		DueAt:        dueAt,
	}

	resp, err := api.Post("/chases", req)
	if err != nil {
		return fmt.Errorf("failed to create chase: %w", err)
	}

	var chase Chase
	if err := json.Unmarshal(resp.Data, &chase); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chase, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Created chase: %s\n", chase.ID)
		fmt.Printf("Client: %s\n", chase.ClientRef)
		fmt.Printf("Type: %s\n", chase.Type)
		fmt.Printf("Status: %s\n", chase.Status)
	}

	return nil
}
