package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
)

type courseApi struct {
	usrSvc   user.ServiceInterface
	svc      course.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc user.ServiceInterface,
	svc course.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{
		usrSvc:   usrSvc,
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryMine)
	cg.POST("", api.create, rolesMiddleware(user.RoleTeacher))
	cg.POST("/join", api.join, rolesMiddleware(user.RoleStudent, user.RoleTeacher))
	cg.GET("/roster", api.roster, rolesMiddleware(user.RoleTeacher))
	cg.GET("/:code", api.retrieve)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}

	c, err := api.svc.Join(ctx.Request().Context(), data.Code, usr.ID)
	if err != nil {
		return errors.Wrap(err, "joining course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter course.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	views, err := api.svc.ListForUser(ctx.Request().Context(), usr.ID, filter)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *courseApi) roster(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rosters, err := api.svc.ListTaughtWithStudents(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing rosters")
	}
	return ctx.JSON(http.StatusOK, rosters)
}

// retrieve hides courses from non members.
func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "finding course by code")
	}
	if !c.HasMember(usr.ID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, course.CourseView{Course: c, TeacherName: c.TeacherName()})
}
