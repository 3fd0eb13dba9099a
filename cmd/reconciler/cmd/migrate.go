package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reconciliation-engine/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Up(appConfig.Database.DSN()); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every applied schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Down(appConfig.Database.DSN()); err != nil {
			return fmt.Errorf("rolling back migrations: %w", err)
		}
		fmt.Println("migrations rolled back")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
