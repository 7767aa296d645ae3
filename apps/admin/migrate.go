package main

import (
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/jgfoster/PrairieLearn/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|up-by-one|up-to|down|down-to|redo|reset|status|version|create|fix> [args]",
		Short: "Run a goose command against the embedded migrations",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	var db *sql.DB
	if cli.db != nil {
		db = cli.db.DB
	}
	return gooseRunFunc(args[0], db, database.MigrationsDir, args[1:]...)
}
