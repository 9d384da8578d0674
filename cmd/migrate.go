package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/codebot/internal/store/pg"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres schema migrations",
		Long:  "Applies the embedded migrations to the configured Postgres database. SQLite creates its schema on open.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _ := loadConfig()
			sc := storeConfig(cfg)
			if !sc.IsPostgres() {
				fmt.Println("Storage driver is sqlite; the schema is created automatically.")
				return
			}
			if err := pg.Migrate(sc.PostgresDSN); err != nil {
				exitErr("%v", err)
			}
			fmt.Println("Migrations applied.")
		},
	}
}
