package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
	logsvc "github.com/trezcool/ecole/services/logger"
	dummydb "github.com/trezcool/ecole/storage/database/dummy"
)

// DefaultPassword satisfies the password policy.
const DefaultPassword = "Zq9!xW#4mK"

// NewConfig returns a test Config which does not read the environment.
func NewConfig() *core.Config {
	conf := &core.Config{
		Env:             "TEST",
		Build:           "test",
		TestMode:        true,
		AppName:         "Ecole",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:5000",
		Server: core.ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Course: core.CourseConfig{
			CodeAttempts: 3,
			CodeBackoff:  time.Millisecond,
		},
	}
	conf.SetDefaultFromEmail("Ecole <noreply@localhost>")
	return conf
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorAndTranslator()
	return validate
}

// NewValidatorAndTranslator returns a validator and the translator its messages are registered with.
func NewValidatorAndTranslator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger which discards everything.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(io.Discard, NewConfig())
}

// PrepareDB returns an empty in-memory database.
func PrepareDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(db.Reset)
	return db
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, role string, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(DefaultPassword); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse persists a Course taught by teacher, bypassing validation.
func CreateCourse(t *testing.T, repo course.Repository, teacher user.User, subject, typ, code string) course.Course {
	c := course.Course{
		Subject:   subject,
		Grade:     "10",
		Type:      typ,
		Section:   "A",
		JoinCode:  code,
		Members:   []course.Membership{{UserID: teacher.ID, Username: teacher.Username, Role: course.RoleTeacher}},
		CreatedAt: time.Now().UTC(),
	}
	if typ == course.TypeClassroom {
		c.Highschool = "Lycee Wima"
	} else {
		c.GroupLabel = "G1"
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
