package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core/dashboard"
)

type dashboardApi struct {
	svc dashboard.ServiceInterface
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc dashboard.ServiceInterface) {
	api := dashboardApi{svc: svc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("", api.overview, adminMiddleware())
}

func (api *dashboardApi) overview(ctx echo.Context) error {
	overview, err := api.svc.Overview()
	if err != nil {
		return errors.Wrap(err, "building dashboard overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}
