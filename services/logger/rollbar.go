package logsvc

import (
	"fmt"
	"io"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/user"
)

// RollbarLogger reports to Rollbar and writes every entry to a local zerolog sink.
type RollbarLogger struct {
	local zerolog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out io.Writer, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)

	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}
	local := zerolog.New(out).Level(level).With().Timestamp().Str("app", conf.AppName).Str("env", conf.Env).Logger()
	return &RollbarLogger{local: local}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *user.User) {
	var usr *user.User
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if u, ok := arg.(user.User); ok {
			if usr == nil { // only set one User
				rollbar.SetPerson(u.ID, u.Username, u.Email)
				usr = &u
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if usr == nil {
		rollbar.ClearPerson()
	}
	return newArgs, usr
}

func (l RollbarLogger) log(ev *zerolog.Event, msg string, args []interface{}, usr *user.User) {
	if usr != nil {
		ev = ev.Str("user_id", usr.ID).Str("username", usr.Username)
	}
	for _, arg := range args[1:] { // args[0] is msg
		switch a := arg.(type) {
		case error:
			ev = ev.Str("error", fmt.Sprintf("%+v", a))
		case map[string]interface{}:
			ev = ev.Fields(a)
		default:
			ev = ev.Interface("extra", a)
		}
	}
	ev.Msg(msg)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	a, usr := l.prepare(msg, args)
	rollbar.Debug(a...)
	l.log(l.local.Debug(), msg, a, usr)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	a, usr := l.prepare(msg, args)
	rollbar.Info(a...)
	l.log(l.local.Info(), msg, a, usr)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	a, usr := l.prepare(msg, args)
	rollbar.Warning(a...)
	l.log(l.local.Warn(), msg, a, usr)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	a, usr := l.prepare(msg, args)
	rollbar.Error(a...)
	l.log(l.local.Error(), msg, a, usr)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	a, usr := l.prepare(msg, args)
	rollbar.Critical(a...)
	rollbar.Wait()
	l.log(l.local.Fatal(), msg, a, usr)
}
