package server

import (
	"net"

	"github.com/davecgh/go-spew/spew"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/server/gql"
	"github.com/troydota/api.opinion.komodohype.dev/utils"

	log "github.com/sirupsen/logrus"
)

type Server struct {
	app *fiber.App
	ln  net.Listener
}

type customLogger struct{}

func (*customLogger) Write(data []byte) (n int, err error) {
	log.Debugln(utils.B2S(data))
	return len(data), nil
}

// New builds the http app around schema without listening. Requests are
// authenticated by authn before they reach the GraphQL endpoint.
func New(schema *graphql.Schema, authn *auth.Authenticator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Output: &customLogger{},
	}))

	app.Get("/health-check", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": fiber.StatusOK})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(authn.Middleware())

	gql.GQL(app, schema)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(&fiber.Map{
			"status":  fiber.StatusNotFound,
			"message": "We don't know what you're looking for.",
		})
	})

	return app
}

// NewServer starts serving app on the given listener address.
func NewServer(app *fiber.App, network, address string) (*Server, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}

	server := &Server{
		ln:  ln,
		app: app,
	}

	go func() {
		if err := server.app.Listener(server.ln); err != nil {
			log.Errorf("failed to start http server, err=%v", err)
		}
	}()

	return server, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(&fiber.Map{
			"status":  e.Code,
			"message": e.Message,
		})
	}

	log.Errorf("internal err=%v", spew.Sdump(err))

	return c.SendStatus(fiber.StatusInternalServerError)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
