package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ecole/core/user"
)

// addUser validates then creates a user.User, like a signup would.
func (cli *commandLine) addUser(uname, email, role, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "created %s %q (%s)\n", usr.Role, usr.Username, usr.ID)
	return nil
}
