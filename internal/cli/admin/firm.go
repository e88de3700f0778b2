package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adviserops/chaser/internal/config"
	"github.com/adviserops/chaser/internal/repository"
	"github.com/adviserops/chaser/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func FirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firm",
		Short: "Manage firms",
		Long:  "Create and list adviser firms",
	}

	cmd.AddCommand(FirmCreateCmd())
	cmd.AddCommand(FirmListCmd())

	return cmd
}

func FirmCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new firm",
		Long:  "Create a new adviser firm with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runFirmCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runFirmCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	firmRepo := repository.NewFirmRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(firmRepo, nil, uuidGen)

	firm, err := authSvc.CreateFirm(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create firm: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         firm.ID,
			"name":       firm.Name,
			"created_at": firm.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Firm created: %s (%s)\n", firm.Name, firm.ID)
	}

	return nil
}

func FirmListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all firms",
		Long:  "List all firms in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runFirmList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runFirmList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	firmRepo := repository.NewFirmRepository(pool)

	firms, err := firmRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list firms: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(firms))
		for i, firm := range firms {
			data[i] = map[string]interface{}{
				"id":         firm.ID,
				"name":       firm.Name,
				"created_at": firm.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(firms) == 0 {
			fmt.Println("No firms found")
			return nil
		}
		fmt.Println("Firms:")
		for _, firm := range firms {
			fmt.Printf("  %s: %s (created: %s)\n", firm.ID, firm.Name, firm.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
