package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/easeaico/memorify/internal/storage"
)

func init() {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (pgvector extension and app tables)",
		Run: func(cmd *cobra.Command, args []string) {
			dbURL := requireDatabaseURL()
			if dryRun {
				fmt.Println("Dry run mode - no changes will be made")
				fmt.Println("  - Would enable the pgvector extension (PostgreSQL only)")
				fmt.Println("  - Would migrate agent_settings, agent_memories, agent_checkins, weekly_insights, diary_entries")
				return
			}

			fmt.Println("Migrating application tables...")
			store, err := storage.NewStore(cmd.Context(), dbURL)
			if err != nil {
				exitErr("connect database", err)
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context()); err != nil {
				exitErr("migrate", err)
			}
			fmt.Println("  ✓ Application tables migrated")
			fmt.Println("\nMigration completed successfully!")
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be migrated without executing")
	RootCmd.AddCommand(cmd)
}

// requireDatabaseURL reads DATABASE_URL with relaxed validation for operator commands.
func requireDatabaseURL() string {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		exitErr("config", fmt.Errorf("DATABASE_URL environment variable is required"))
	}
	return dbURL
}
