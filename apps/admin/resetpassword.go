package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err := cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	return nil
}
