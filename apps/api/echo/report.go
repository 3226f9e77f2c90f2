package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/report"
)

type reportApi struct {
	svc report.ServiceInterface
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.ServiceInterface) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt, managementMiddleware())
	rg.GET("/general", api.general)
	rg.GET("/ebi/:id", api.session)
}

func (api *reportApi) general(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rpt, err := api.svc.General(claims.Actor())
	if err != nil {
		return errors.Wrap(err, "building general report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) session(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rpt, err := api.svc.Session(claims.Actor(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building session report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}
