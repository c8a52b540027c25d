package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/photowall/internal/config"
	"github.com/templui/photowall/internal/db"
	"github.com/templui/photowall/internal/logger"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit log schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(db.RunMigrations)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(db.MigrateDown)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(true, "")

			conn, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			version, err := db.MigrationVersion(conn.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			fmt.Printf("%s: version %d\n", cfg.DBDriver, version)
			return nil
		},
	})
	return cmd
}

func migrate(run func(conn *sql.DB, driver string) error) error {
	cfg := config.Load()
	logger.Init(true, "")

	conn, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	return run(conn.DB, cfg.DBDriver)
}
