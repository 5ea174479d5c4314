package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core/client"
)

type clientApi struct {
	svc      client.ServiceInterface
	validate *validator.Validate
}

func registerClientAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc client.ServiceInterface, validate *validator.Validate) {
	api := clientApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/clients", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *clientApi) create(ctx echo.Context) error {
	var data client.NewClient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClient")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	clt, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}
	return ctx.JSON(http.StatusCreated, clt)
}

func (api *clientApi) query(ctx echo.Context) error {
	filter := new(client.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Client{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	clients, err := api.svc.Query(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying clients")
	}
	if clients == nil {
		clients = []client.Client{}
	}
	return ctx.JSON(http.StatusOK, clients)
}

func (api *clientApi) retrieve(ctx echo.Context) error {
	clt, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == client.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding client by ID")
	}
	return ctx.JSON(http.StatusOK, clt)
}

func (api *clientApi) update(ctx echo.Context) error {
	clt, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == client.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding client by ID")
	}

	var data client.UpdateClient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClient")
	}

	// `IsActive` can only be changed by admin
	if data.IsActive != nil {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if !claims.IsAdmin {
			return errHttpForbidden
		}
	}

	if err := data.Validate(api.validate, clt, api.svc); err != nil {
		return err
	}

	clt, err = api.svc.Update(clt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating client")
	}
	return ctx.JSON(http.StatusOK, clt)
}

func (api *clientApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting client")
	}
	return ctx.NoContent(http.StatusNoContent)
}
