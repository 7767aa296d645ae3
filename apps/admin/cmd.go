package main

import (
	"errors"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sqlx.DB
	variantSvc *variant.Service
	courses    course.Repository
	out        io.Writer
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administration tasks of the variant service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(cli.migrateCommand(), cli.variantCommand())
	return root
}

// run executes the command line args (program name included).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
