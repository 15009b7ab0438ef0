// Package di wires the API dependencies into a dig.Container.
package di

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/examguard/apps/api/echo"
	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	logsvc "github.com/trezcool/examguard/services/logger"
	metricsvc "github.com/trezcool/examguard/services/metrics"
	"github.com/trezcool/examguard/storage"
)

type (
	// Repositories spreads the opened Stores over the repository interfaces.
	Repositories struct {
		dig.Out
		Users    user.Repository
		Attempts exam.Repository
		Catalog  exam.Catalog
		Overview exam.OverviewReader
	}

	ServiceParams struct {
		dig.In
		Conf     *core.Config
		Logger   core.Logger
		Attempts exam.Repository
		Catalog  exam.Catalog
		Overview exam.OverviewReader
		Metrics  exam.Metrics
	}
)

func newLogger(std *slog.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(std, conf)
}

func newStores(conf *core.Config, logger core.Logger) *storage.Stores {
	stores, err := storage.Open(context.Background(), conf, true)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return stores
}

func newRepositories(stores *storage.Stores) Repositories {
	return Repositories{
		Users:    stores.Users,
		Attempts: stores.Attempts,
		Catalog:  stores.Catalog,
		Overview: stores.Overview,
	}
}

func newExamService(p ServiceParams) *exam.Service {
	return exam.NewService(exam.Deps{
		Attempts: p.Attempts,
		Catalog:  p.Catalog,
		Overview: p.Overview,
		Logger:   p.Logger,
		Metrics:  p.Metrics,
		Conf:     p.Conf,
	})
}

func newSweeper(svc *exam.Service, conf *core.Config, logger core.Logger) *exam.Sweeper {
	return exam.NewSweeper(svc, conf.Exam.SweepInterval, logger)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	return validate
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	svc *exam.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		ExamSvc:    svc,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig is core.NewConfig outside of tests.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(logsvc.NewStdLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newStores))
	must(c.Provide(newRepositories))
	must(c.Provide(metricsvc.NewPrometheus))
	must(c.Provide(func(m *metricsvc.Prometheus) exam.Metrics { return m }))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(newExamService))
	must(c.Provide(newSweeper))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
