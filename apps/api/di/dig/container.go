package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ecole/apps/api/echo"
	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
	emailsvc "github.com/trezcool/ecole/services/email"
	logsvc "github.com/trezcool/ecole/services/logger"
	"github.com/trezcool/ecole/storage/database"
	dummydb "github.com/trezcool/ecole/storage/database/dummy"
	sqlxrepos "github.com/trezcool/ecole/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are the storage backends picked by database.engine.
	Repositories struct {
		dig.Out
		Users   user.Repository
		Courses course.Repository
	}
)

// Closer releases the storage backend.
type Closer func() error

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stderr, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (Repositories, Closer) {
	if conf.Database.Engine == "memory" {
		db, _ := dummydb.Open()
		return Repositories{
			Users:   dummydb.NewUserRepository(db),
			Courses: dummydb.NewCourseRepository(db),
		}, func() error { return nil }
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Repositories{
		Users:   sqlxrepos.NewUserRepository(db),
		Courses: sqlxrepos.NewCourseRepository(db),
	}, db.Close
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface), new(course.IdentityStore))))
	must(c.Provide(course.NewService, dig.As(new(course.ServiceInterface))))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
