// Package doorman implements a minimal web registration and login flow:
// html forms backed by a users store and a password hasher.
package doorman

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/doorman-auth/doorman/credentials"
	applog "github.com/doorman-auth/doorman/internal/logger"
	"github.com/doorman-auth/doorman/internal/render"
	"github.com/doorman-auth/doorman/internal/version"
	"github.com/doorman-auth/doorman/storage/model"
)

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   handleError,
	Network:        "tcp",
	ViewsLayout:    render.Layout,
}

// Doorman serves the registration and login pages
type Doorman struct {
	server         *fiber.App
	redirectServer *fiber.App
	serverConf     ServerConf
	users          model.UsersStore
	hasher         credentials.Hasher
}

// NewDoorman creates a new Doorman. The views must provide the templates
// named in the render package.
func NewDoorman(
	serverConf ServerConf,
	users model.UsersStore,
	hasher credentials.Hasher,
	views fiber.Views,
) (*Doorman, error) {
	if users == nil {
		return nil, errors.New("no users store given")
	}
	if hasher == nil {
		return nil, errors.New("no password hasher given")
	}
	if views == nil {
		return nil, errors.New("no views engine given")
	}
	conf := FiberServerConfig
	conf.Views = views
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		conf.TrustedProxies = tps
		conf.EnableTrustedProxyCheck = true
	}
	conf.ProxyHeader = serverConf.ForwardedIPHeader
	if t := serverConf.Timeouts.Read.Duration(); t > 0 {
		conf.ReadTimeout = t
	}
	if t := serverConf.Timeouts.Write.Duration(); t > 0 {
		conf.WriteTimeout = t
	}
	if t := serverConf.Timeouts.Idle.Duration(); t > 0 {
		conf.IdleTimeout = t
	}

	server := fiber.New(conf)
	server.Use(recover.New())
	server.Use(compress.New())
	server.Use(
		logger.New(
			logger.Config{
				Format: "${time} ${status} - ${latency} ${ip} ${method} ${path} ${locals:requestid}\n",
				Output: applog.AccessLogWriter(),
			},
		),
	)
	server.Use(requestid.New())

	d := &Doorman{
		server:     server,
		serverConf: serverConf,
		users:      users,
		hasher:     hasher,
	}
	if serverConf.TLS.Enabled && serverConf.TLS.RedirectHTTP {
		d.redirectServer = newRedirectServer()
	}
	d.addRoutes()
	return d, nil
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (d *Doorman) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(d.server)
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints. It returns nil after Shutdown.
func (d *Doorman) Listen(addr string) error {
	return d.server.Listen(addr)
}

// Shutdown gracefully shuts down the server and the http redirect server if
// one was started
func (d *Doorman) Shutdown() error {
	if d.redirectServer != nil {
		if err := d.redirectServer.Shutdown(); err != nil {
			log.WithError(err).Error("could not shut down redirect server")
		}
	}
	return d.server.Shutdown()
}

// newRedirectServer returns an app that redirects every request to https
func newRedirectServer() *fiber.App {
	httpServer := fiber.New(
		fiber.Config{
			ReadTimeout:  FiberServerConfig.ReadTimeout,
			WriteTimeout: FiberServerConfig.WriteTimeout,
			IdleTimeout:  FiberServerConfig.IdleTimeout,
			Network:      FiberServerConfig.Network,
		},
	)
	httpServer.All(
		"*", func(ctx *fiber.Ctx) error {
			//goland:noinspection HttpUrlsUsage
			return ctx.Redirect(
				strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
				fiber.StatusPermanentRedirect,
			)
		},
	)
	return httpServer
}

// Start starts the server as configured in the ServerConf and blocks until
// it fails or Shutdown is called; after Shutdown it returns nil
func (d *Doorman) Start() error {
	conf := d.serverConf
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		return d.server.Listen(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port))
	}
	// TLS enabled
	if d.redirectServer != nil {
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			if err := d.redirectServer.Listen(fmt.Sprintf("%s:80", conf.IPListen)); err != nil {
				log.WithError(err).Error("redirect server failed")
			}
		}()
	}
	port := conf.Port
	if port == 0 {
		port = 443
	}
	log.WithField("port", port).Info("TLS enabled, starting https server")
	return d.server.ListenTLS(fmt.Sprintf("%s:%d", conf.IPListen, port), conf.TLS.Cert, conf.TLS.Key)
}

// newPage returns the template binding for the current request
func newPage(ctx *fiber.Ctx, title string) render.Page {
	return render.Page{
		Request: render.RequestInfo{
			Method:    ctx.Method(),
			Path:      ctx.Path(),
			RequestID: ctx.GetRespHeader(fiber.HeaderXRequestID),
		},
		Title:   title,
		Version: version.VERSION,
	}
}

func handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	var fErr *fiber.Error
	if errors.As(err, &fErr) {
		code = fErr.Code
		msg = fErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(
			log.Fields{
				"method": ctx.Method(),
				"path":   ctx.Path(),
			},
		).Error("request failed")
	}

	page := newPage(ctx, "Error")
	page.Status = code
	page.Error = msg
	ctx.Status(code)
	if rErr := ctx.Render(render.Error, page); rErr != nil {
		log.WithError(rErr).Error("could not render error page")
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return ctx.Status(code).SendString(msg)
	}
	return nil
}
