package commands

import (
	"log"

	"taskbot/internal/config"
	"taskbot/internal/database"

	"github.com/spf13/cobra"
)

func addMigrate(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and tasks tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			pool, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(pool.DB); err != nil {
				return err
			}
			log.Printf("✅ Migrations applied")
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
