package main

import (
	"github.com/spf13/cobra"

	"github.com/talenthos/talenthos/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		return db.Migrate(conn, log)
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
}
