package main

import (
	"fmt"
	"os"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/variant"
	"github.com/jgfoster/PrairieLearn/services/coursefiles"
	logsvc "github.com/jgfoster/PrairieLearn/services/logger"
	questionsvc "github.com/jgfoster/PrairieLearn/services/questions"
	"github.com/jgfoster/PrairieLearn/storage/database"
	"github.com/jgfoster/PrairieLearn/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	zl := logsvc.NewZapLogger(conf).Named("admin")
	logger := logsvc.NewRollbarLogger(zl, conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	store, err := coursefiles.New(conf)
	if err != nil {
		logger.Fatal("opening course file store", err)
	}
	registry := questionsvc.NewDefaultRegistry(store, conf, logger)
	courses := sqlxrepos.NewCourseRepository(db)
	variantSvc := variant.NewService(variant.Deps{
		Tx:         database.NewTransactor(db),
		Variants:   sqlxrepos.NewVariantRepository(db),
		Questions:  sqlxrepos.NewQuestionRepository(db),
		Courses:    courses,
		Workspaces: sqlxrepos.NewWorkspaceRepository(db),
		Issues:     issue.NewService(sqlxrepos.NewIssueRepository(db), logger),
		Generator:  variant.NewGenerator(registry, variant.WithModuleTimeout(conf.Variant.GenerationTimeout)),
		Logger:     logger,
	})

	// start CLI
	cli := commandLine{
		db:         db,
		variantSvc: variantSvc,
		courses:    courses,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
