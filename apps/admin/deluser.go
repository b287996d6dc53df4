package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) delUser(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err = cli.usrSvc.Delete(ctx, usr.ID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "deleted %q\n", usr.Username)
	return nil
}
