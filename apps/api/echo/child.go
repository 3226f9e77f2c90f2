package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/child"
)

type childApi struct {
	svc      child.ServiceInterface
	validate *validator.Validate
}

func registerChildAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc child.ServiceInterface, validate *validator.Validate) {
	api := childApi{svc: svc, validate: validate}

	cg := g.Group("/children", jwt, staffMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
}

func (api *childApi) query(ctx echo.Context) error {
	filter := new(child.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	children, total, err := api.svc.Query(filter)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []child.Child{}
	}
	return ctx.JSON(http.StatusOK, newListResponse(children, total, filter.Page, filter.PageSize))
}

func (api *childApi) create(ctx echo.Context) error {
	var data child.NewChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chd, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating child")
	}
	return ctx.JSON(http.StatusCreated, chd)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	chd, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == child.ErrNotFound {
			return core.NewNotFoundError(child.ErrNotFound)
		}
		return errors.Wrap(err, "finding child")
	}
	return ctx.JSON(http.StatusOK, chd)
}

func (api *childApi) update(ctx echo.Context) error {
	var data child.UpdateChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chd, err := api.svc.Update(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == child.ErrNotFound {
			return core.NewNotFoundError(child.ErrNotFound)
		}
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, chd)
}
