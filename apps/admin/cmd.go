package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = runMigration      // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrSvc    user.ServiceInterface
	courseSvc course.ServiceInterface
	validate  *validator.Validate
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate up|down|version|force VERSION - manage the database schema")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL -role "+strings.Join(user.AllRoles, "|")+" - create a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  deluser -username USERNAME|EMAIL - delete a user, keeping their course memberships")
	_, _ = fmt.Fprintln(cli.out, "  courses -username USERNAME|EMAIL [-type "+strings.Join(course.AllTypes, "|")+"] - list the courses of a user")
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleStudent, "The user's role: "+strings.Join(user.AllRoles, ", "))

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	delUserCmd := flag.NewFlagSet("deluser", flag.ContinueOnError)
	delUserCmd.SetOutput(cli.out)
	delUserUname := delUserCmd.String("username", "", "The user's username or email.")

	coursesCmd := flag.NewFlagSet("courses", flag.ContinueOnError)
	coursesCmd.SetOutput(cli.out)
	coursesUname := coursesCmd.String("username", "", "The user's username or email.")
	coursesType := coursesCmd.String("type", "", "Only list courses of this type: "+strings.Join(course.AllTypes, ", "))

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if cli.db == nil {
			return errNoDatabase
		}
		return migrateFunc(cli.db, cli.out, args[2], args[3:]...)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "deluser":
		if err := delUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *delUserUname == "" {
			delUserCmd.Usage()
			return errHelp
		}
		return cli.delUser(*delUserUname)

	case "courses":
		if err := coursesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *coursesUname == "" {
			coursesCmd.Usage()
			return errHelp
		}
		return cli.listCourses(*coursesUname, *coursesType)

	default:
		cli.printUsage()
		return errHelp
	}
}
