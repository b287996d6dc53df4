package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/ecole/core/course"
)

// listCourses prints the courses uname belongs to, with their teacher.
func (cli *commandLine) listCourses(uname, typ string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	views, err := cli.courseSvc.ListForUser(ctx, usr.ID, course.QueryFilter{Type: typ})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tTYPE\tSUBJECT\tGRADE\tTEACHER")
	for _, v := range views {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.JoinCode, v.Type, v.Subject, v.Grade, v.TeacherName)
	}
	return w.Flush()
}
