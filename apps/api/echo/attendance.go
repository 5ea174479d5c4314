package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/user"
)

type attendanceApi struct {
	svc      attendance.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc attendance.ServiceInterface,
	userSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	ag := g.Group("/attendances", jwt)
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.POST("/:id/finalize", api.finalize)
	ag.DELETE("/:id", api.destroy)
}

func (api *attendanceApi) create(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Create(data, actor)
	if err != nil {
		return errors.Wrap(err, "creating attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Attendance{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	atts, err := api.svc.Query(filter, actor, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attendances")
	}
	if atts == nil {
		atts = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Get(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "finding attendance by ID")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Update(ctx.Param("id"), data, actor)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) finalize(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.Finalize(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "finalizing attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Param("id"), actor); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}
