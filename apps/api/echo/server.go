package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
	"github.com/ebivilapaula/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc   user.ServiceInterface
		ChildSvc  child.ServiceInterface
		EbiSvc    ebi.ServiceInterface
		ReportSvc report.ServiceInterface
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	})

	registerAuthAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate)
	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate)
	registerProfileAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate)
	registerChildAPI(v1, jwt, s.opts.ChildSvc, s.opts.Validate)
	registerEbiAPI(v1, jwt, s.opts.EbiSvc, s.opts.Validate)
	registerReportAPI(v1, jwt, s.opts.ReportSvc)
}

// Start runs the server until an interrupt signal arrives or a handler
// reports an unrecoverable error, then drains in-flight requests.
func (s *server) Start() {
	serverErrs := make(chan error, 1)
	go func() {
		serverErrs <- s.app.Start(s.opts.Address)
	}()

	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		if err != nil && err != http.ErrServerClosed {
			s.opts.Logger.Fatal("server error", err)
		}
	case sig := <-s.shutdown:
		s.opts.Logger.Info("shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			_ = s.app.Close()
			s.opts.Logger.Fatal("could not stop server gracefully", err)
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to EBI Vila Paula API!")
}
