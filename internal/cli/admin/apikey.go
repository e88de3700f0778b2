package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/repository"
	"github.com/adviserops/chaser/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// resolveFirmID accepts either a firm UUID or a firm name.
func resolveFirmID(ctx context.Context, firmRepo *repository.FirmRepository, firmRef string) (string, error) {
	if _, err := uuid.Parse(firmRef); err == nil {
		firm, err := firmRepo.GetByID(ctx, firmRef)
		if err != nil {
			return "", fmt.Errorf("firm not found: %s", firmRef)
		}
		return firm.ID, nil
	}

	firm, err := firmRepo.GetByName(ctx, firmRef)
	if err != nil {
		if errors.Is(err, domain.ErrFirmNotFound) {
			return "", fmt.Errorf("firm not found: %s", firmRef)
		}
		return "", err
	}
	return firm.ID, nil
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a firm",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("firm", "f", "", "Firm ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("firm")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	firmRef, _ := cmd.Flags().GetString("firm")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	firmRepo := repository.NewFirmRepository(pool)
	authSvc := service.NewAuthService(
		firmRepo,
		repository.NewAPIKeyRepository(pool),
		&service.DefaultUUIDGenerator{},
	)

	firmID, err := resolveFirmID(ctx, firmRepo, firmRef)
	if err != nil {
		return err
	}

	plaintext, err := authSvc.CreateAPIKey(ctx, firmID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	// Keys come back newest first, so the key just created leads the list.
	keys, err := authSvc.ListAPIKeys(ctx, firmID)
	if err != nil {
		return fmt.Errorf("failed to retrieve created key: %w", err)
	}
	var keyID string
	if len(keys) > 0 {
		keyID = keys[0].ID
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{
			"id":    keyID,
			"name":  name,
			"firm":  firmID,
			"token": plaintext,
		})
		return nil
	}

	fmt.Printf("API key created for firm %s\n", firmID)
	fmt.Printf("Key ID: %s\n", keyID)
	fmt.Printf("Key Name: %s\n", name)
	fmt.Printf("Token: %s\n", plaintext)
	fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	return nil
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a firm",
		Long:  "List all API keys for a specific firm",
		RunE: func(cmd *cobra.Command, args []string) error {
			firmRef, _ := cmd.Flags().GetString("firm")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAPIKeyList(firmRef, outputFormat)
		},
	}

	cmd.Flags().StringP("firm", "f", "", "Firm ID or name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("firm")

	return cmd
}

func runAPIKeyList(firmRef, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	firmID, err := resolveFirmID(ctx, repository.NewFirmRepository(pool), firmRef)
	if err != nil {
		return err
	}

	keys, err := repository.NewAPIKeyRepository(pool).GetByFirmID(ctx, firmID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		rows := make([]map[string]interface{}, len(keys))
		for i, key := range keys {
			rows[i] = map[string]interface{}{
				"id":         key.ID,
				"name":       key.Name,
				"firm_id":    key.FirmID,
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		printJSON(rows)
		return nil
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys found for firm %s\n", firmID)
		return nil
	}
	fmt.Printf("API keys for firm %s:\n", firmID)
	for _, key := range keys {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		}
		fmt.Printf("  %s: %s (%s, created: %s)\n",
			key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewAPIKeyRepository(pool).Revoke(ctx, keyID); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{
			"id":      keyID,
			"revoked": true,
			"message": "API key revoked successfully",
		})
		return nil
	}

	fmt.Printf("API key %s revoked successfully\n", keyID)
	return nil
}
