package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core/form"
)

type formApi struct {
	svc      form.ServiceInterface
	validate *validator.Validate
}

func registerFormAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc form.ServiceInterface, validate *validator.Validate) {
	api := formApi{
		svc:      svc,
		validate: validate,
	}

	fg := g.Group("/form-schemas", jwt)

	// schema management is admin-only; reading is open to all authed users
	fg.GET("", api.query)
	fg.GET("/field-types", api.queryFieldTypes)
	fg.GET("/:id", api.retrieve)

	fg.POST("", api.create, adminMiddleware())
	fg.PUT("/:id", api.update, adminMiddleware())
	fg.POST("/:id/duplicate", api.duplicate, adminMiddleware())
	fg.POST("/:id/deactivate", api.deactivate, adminMiddleware())
}

func (api *formApi) create(ctx echo.Context) error {
	var data form.NewSchema
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchema")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating form schema")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *formApi) query(ctx echo.Context) error {
	filter := new(form.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []form.Schema{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schemas, err := api.svc.Query(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying form schemas")
	}
	if schemas == nil {
		schemas = []form.Schema{}
	}
	return ctx.JSON(http.StatusOK, schemas)
}

func (api *formApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == form.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding form schema by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *formApi) update(ctx echo.Context) error {
	var data form.UpdateSchema
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchema")
	}

	orig, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == form.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding form schema by ID")
	}
	if err := data.Validate(api.validate, orig, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Update(orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating form schema")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *formApi) duplicate(ctx echo.Context) error {
	var data form.DuplicateSchema
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DuplicateSchema")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Duplicate(ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "duplicating form schema")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *formApi) deactivate(ctx echo.Context) error {
	if err := api.svc.Deactivate(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating form schema")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *formApi) queryFieldTypes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, form.AllFieldTypes)
}
