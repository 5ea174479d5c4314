package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/dashboard"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
	"github.com/tmdiniz/atende/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc       user.ServiceInterface
		ClientSvc     client.ServiceInterface
		FormSvc       form.ServiceInterface
		AttendanceSvc attendance.ServiceInterface
		NPSSvc        nps.ServiceInterface
		DashboardSvc  dashboard.ServiceInterface

		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
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

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate)
	registerClientAPI(v1, jwt, s.opts.ClientSvc, s.opts.Validate)
	registerFormAPI(v1, jwt, s.opts.FormSvc, s.opts.Validate)
	registerAttendanceAPI(v1, jwt, s.opts.AttendanceSvc, s.opts.UserSvc, s.opts.Validate)
	registerNPSAPI(v1, jwt, s.opts.NPSSvc, s.opts.Validate)
	registerDashboardAPI(v1, jwt, s.opts.DashboardSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Atende API!")
}
