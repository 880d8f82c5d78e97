package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this one lets you do it, or check
where the schema stands, on its own.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	slog.Info("Starting database migration", "database", cfg.DatabasePath, "status_only", status)

	if status {
		store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		cmd.Println(cli.FormatTitle("📊 Database Migration Status"))
		cmd.Printf("Database:        %s\n", store.Path())
		cmd.Printf("Current version: %d\n", version)
		cmd.Printf("Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if version < storage.ExpectedSchemaVersion {
			cmd.Println(cli.FormatWarning("Run 'spice migrate' to upgrade"))
		}
		return nil
	}

	store, err := initStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Database at schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
