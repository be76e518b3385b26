package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/monitor"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    user.ServiceInterface
		NotifSvc   notification.ServiceInterface
		Broker     core.Broadcaster
		Collector  monitor.Collector
		Logs       monitor.LogRegistry
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps ServerDeps
		app  *echo.Echo
		auth *jwtAuth

		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf, deps.UserSvc),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := s.auth.middleware()

	registerUserAPI(api, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerNotificationAPI(api, jwt, s.auth, s.deps.NotifSvc)

	ws := api.Group("/ws")
	notifWS := notificationSocket{auth: s.auth, broker: s.deps.Broker, logger: s.deps.Logger}
	monWS := monitorSocket{
		auth:      s.auth,
		broker:    s.deps.Broker,
		collector: s.deps.Collector,
		logs:      s.deps.Logs,
		logger:    s.deps.Logger,
		interval:  conf.Monitor.DefaultInterval,
	}
	ws.GET("/notifications", notifWS.handle)
	ws.GET("/monitor", monWS.handle)
}

// Start runs the listener and reports its terminal error on Errors().
// It is meant to be called from its own goroutine.
func (s *server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.APIHost)
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
