package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/ebi"
)

type ebiApi struct {
	svc      ebi.ServiceInterface
	validate *validator.Validate
}

func registerEbiAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc ebi.ServiceInterface, validate *validator.Validate) {
	api := ebiApi{svc: svc, validate: validate}

	eg := g.Group("/ebis", jwt, staffMiddleware())
	// The subgroup must be created before the eg routes are registered:
	// creating a group with middleware registers Any("") catch-all routes
	// that would otherwise shadow eg.GET("").
	mg := eg.Group("", managementMiddleware())

	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.POST("/:id/presence", api.registerPresence)
	eg.POST("/presence/:id/checkout", api.checkout)

	mg.POST("", api.create)
	mg.PUT("/:id", api.update)
	mg.POST("/:id/close", api.close)
	mg.POST("/:id/reopen", api.reopen)
}

type (
	// sessionDetail is a Session plus its attendance rows.
	sessionDetail struct {
		ebi.Session
		Presences []ebi.Presence `json:"presences"`
	}

	// presenceWithPin surfaces the checkout PIN exactly once, in the
	// registration response.
	presenceWithPin struct {
		ebi.Presence
		PinCode string `json:"pin_code"`
	}
)

func (api *ebiApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(ebi.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	sessions, total, err := api.svc.QuerySessions(claims.Actor(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []ebi.Session{}
	}
	return ctx.JSON(http.StatusOK, newListResponse(sessions, total, filter.Page, filter.PageSize))
}

func (api *ebiApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ebi.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSession(claims.Actor(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *ebiApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	s, presences, err := api.svc.GetSession(claims.Actor(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding session")
	}
	if presences == nil {
		presences = []ebi.Presence{}
	}
	return ctx.JSON(http.StatusOK, sessionDetail{Session: s, Presences: presences})
}

func (api *ebiApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ebi.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateSession(claims.Actor(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *ebiApi) registerPresence(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ebi.NewPresence
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPresence")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.RegisterPresence(claims.Actor(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering presence")
	}
	return ctx.JSON(http.StatusCreated, presenceWithPin{Presence: p, PinCode: p.PinCode})
}

func (api *ebiApi) checkout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ebi.CheckoutPresence
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutPresence")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Checkout(claims.Actor(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "checking out presence")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *ebiApi) close(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	s, err := api.svc.CloseSession(claims.Actor(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *ebiApi) reopen(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	s, err := api.svc.ReopenSession(claims.Actor(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reopening session")
	}
	return ctx.JSON(http.StatusOK, s)
}
