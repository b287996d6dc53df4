package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
	emailsvc "github.com/trezcool/ecole/services/email"
	logsvc "github.com/trezcool/ecole/services/logger"
	"github.com/trezcool/ecole/storage/database"
	dummydb "github.com/trezcool/ecole/storage/database/dummy"
	sqlxrepos "github.com/trezcool/ecole/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	cli := commandLine{validate: validate, out: os.Stdout}

	var (
		usrRepo    user.Repository
		courseRepo course.Repository
	)
	if conf.Database.Engine == "memory" {
		db, _ := dummydb.Open()
		usrRepo = dummydb.NewUserRepository(db)
		courseRepo = dummydb.NewCourseRepository(db)
	} else {
		db, err := database.Open(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		cli.db = db
		usrRepo = sqlxrepos.NewUserRepository(db)
		courseRepo = sqlxrepos.NewCourseRepository(db)
	}

	usrSvc := user.NewService(usrRepo)
	cli.usrSvc = usrSvc
	cli.courseSvc = course.NewService(courseRepo, usrSvc, emailsvc.NewConsoleService(conf, logger), logger, validate, conf)

	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		code = 1
	}
	if cli.db != nil {
		_ = cli.db.Close()
	}
	os.Exit(code)
}
