package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/jgfoster/PrairieLearn/apps/api/echo"
	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
	"github.com/jgfoster/PrairieLearn/core/workspace"
	"github.com/jgfoster/PrairieLearn/services/coursefiles"
	logsvc "github.com/jgfoster/PrairieLearn/services/logger"
	metricsvc "github.com/jgfoster/PrairieLearn/services/metrics"
	questionsvc "github.com/jgfoster/PrairieLearn/services/questions"
	"github.com/jgfoster/PrairieLearn/services/tracing"
	"github.com/jgfoster/PrairieLearn/storage/database"
	"github.com/jgfoster/PrairieLearn/storage/database/inmem"
	"github.com/jgfoster/PrairieLearn/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBCloser releases the database connections.
type DBCloser func() error

// Storage groups every repository of the selected database engine.
type Storage struct {
	dig.Out
	Closer     DBCloser
	Tx         core.Transactor
	Variants   variant.Repository
	Questions  question.Repository
	Courses    course.Repository
	Workspaces workspace.Repository
	Issues     issue.Repository
}

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	if conf.Database.Engine == "inmem" {
		db, err := inmemdb.Open()
		if err != nil {
			return Storage{}, err
		}
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		return Storage{
			Closer:     func() error { return nil },
			Tx:         db,
			Variants:   inmemdb.NewVariantRepository(db),
			Questions:  inmemdb.NewQuestionRepository(db),
			Courses:    inmemdb.NewCourseRepository(db),
			Workspaces: inmemdb.NewWorkspaceRepository(db),
			Issues:     inmemdb.NewIssueRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return Storage{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return Storage{}, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return Storage{}, err
	}
	return Storage{
		Closer:     db.Close,
		Tx:         database.NewTransactor(db),
		Variants:   sqlxrepos.NewVariantRepository(db),
		Questions:  sqlxrepos.NewQuestionRepository(db),
		Courses:    sqlxrepos.NewCourseRepository(db),
		Workspaces: sqlxrepos.NewWorkspaceRepository(db),
		Issues:     sqlxrepos.NewIssueRepository(db),
	}, nil
}

func newTracing(conf *core.Config, logger core.Logger) (tracing.ShutdownFunc, error) {
	return tracing.Init(context.Background(), conf, logger)
}

func newRegistry(store course.FileStore, conf *core.Config, logger core.Logger) *variant.Registry {
	return questionsvc.NewDefaultRegistry(store, conf, logger)
}

func newGenerator(registry *variant.Registry, conf *core.Config, metrics *metricsvc.PrometheusMetrics) *variant.Generator {
	return variant.NewGenerator(registry,
		variant.WithModuleTimeout(conf.Variant.GenerationTimeout),
		variant.WithGeneratorMetrics(metrics),
	)
}

type variantServiceParams struct {
	dig.In
	Tx         core.Transactor
	Variants   variant.Repository
	Questions  question.Repository
	Courses    course.Repository
	Workspaces workspace.Repository
	Issues     *issue.Service
	Generator  *variant.Generator
	Logger     core.Logger
	Metrics    *metricsvc.PrometheusMetrics
}

func newVariantService(p variantServiceParams) *variant.Service {
	return variant.NewService(variant.Deps{
		Tx:         p.Tx,
		Variants:   p.Variants,
		Questions:  p.Questions,
		Courses:    p.Courses,
		Workspaces: p.Workspaces,
		Issues:     p.Issues,
		Generator:  p.Generator,
		Logger:     p.Logger,
	}, variant.WithMetrics(p.Metrics))
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	VariantSvc *variant.Service
	IssueSvc   *issue.Service
	Courses    course.Repository
	Questions  question.Repository
	Metrics    *metricsvc.PrometheusMetrics
	Validate   *validator.Validate
	Translator ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		VariantSvc: p.VariantSvc,
		IssueSvc:   p.IssueSvc,
		Courses:    p.Courses,
		Questions:  p.Questions,
		Metrics:    p.Metrics,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newTracing))
	must(c.Provide(metricsvc.NewPrometheusMetrics))
	must(c.Provide(coursefiles.New))
	must(c.Provide(newRegistry))
	must(c.Provide(newGenerator))
	must(c.Provide(issue.NewService))
	must(c.Provide(newVariantService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
