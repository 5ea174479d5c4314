package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/nps"
)

type npsApi struct {
	svc      nps.ServiceInterface
	validate *validator.Validate
}

func registerNPSAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc nps.ServiceInterface, validate *validator.Validate) {
	api := npsApi{
		svc:      svc,
		validate: validate,
	}

	ng := g.Group("/nps")

	// clients rate from the emailed link, no account needed
	ng.POST("/ratings", api.submit)

	ag := ng.Group("", jwt)
	ag.GET("/ratings/:attendanceID", api.retrieve)
	ag.GET("/statistics", api.statistics)
	ag.GET("/categories/:category", api.byCategory)
}

func (api *npsApi) submit(ctx echo.Context) error {
	var data nps.NewRating
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRating")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rtg, err := api.svc.Submit(data)
	if err != nil {
		return errors.Wrap(err, "submitting rating")
	}
	return ctx.JSON(http.StatusCreated, rtg)
}

func (api *npsApi) retrieve(ctx echo.Context) error {
	rtg, err := api.svc.GetByAttendanceID(ctx.Param("attendanceID"))
	if err != nil {
		return errors.Wrap(err, "finding rating by attendance ID")
	}
	return ctx.JSON(http.StatusOK, rtg)
}

func (api *npsApi) statistics(ctx echo.Context) error {
	filter := new(nps.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = new(nps.QueryFilter)
	}

	stats, err := api.svc.Statistics(filter)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *npsApi) byCategory(ctx echo.Context) error {
	category := nps.Category(strings.ToUpper(ctx.Param("category")))
	if !category.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "category", Error: "unknown category"})
	}

	filter := new(nps.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = new(nps.QueryFilter)
	}

	rated, err := api.svc.ByCategory(category, filter)
	if err != nil {
		return errors.Wrap(err, "querying ratings by category")
	}
	if rated == nil {
		rated = []nps.RatedAttendance{}
	}
	return ctx.JSON(http.StatusOK, rated)
}
