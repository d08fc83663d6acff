package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/QRHub/internal/app/service"
	inthttp "github.com/sifan077/QRHub/internal/http/handler"
	"github.com/sifan077/QRHub/internal/http/middleware"
	httpUtil "github.com/sifan077/QRHub/internal/http/util"
	"github.com/sifan077/QRHub/internal/http/validation"
	"go.uber.org/zap"
)

// Dependencies bundles what the HTTP server needs to serve mappings.
type Dependencies struct {
	Name     string
	Logger   *zap.Logger
	Mappings service.MappingService
	Database inthttp.Pinger
	// Redis enables per-IP rate limiting of the API when set.
	Redis     redis.Cmdable
	RateLimit middleware.RateLimitConfig

	Sessions      *httpUtil.SessionSigner
	AdminPassword string
	SecureCookie  bool
	CORSOrigins   []string
	MaxPageSize   int
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes mounted.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               deps.Name,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(
		middleware.RequestID(),
		middleware.Recovery(s.deps.Logger),
		middleware.Logger(s.deps.Logger),
		middleware.CORS(s.deps.CORSOrigins),
	)
	if s.deps.Redis != nil {
		s.app.Use("/api", middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	validate := validation.New()

	inthttp.NewAuthHandler(inthttp.AuthDeps{
		Logger:        s.deps.Logger,
		Sessions:      s.deps.Sessions,
		AdminPassword: s.deps.AdminPassword,
		SecureCookie:  s.deps.SecureCookie,
		Validator:     validate,
	}).Register(s.app)

	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		Mappings:    s.deps.Mappings,
		Validator:   validate,
		MaxPageSize: s.deps.MaxPageSize,
	}).Register(s.app, middleware.RequireSession(s.deps.Sessions))

	inthttp.NewPageHandler(inthttp.PageDeps{
		Logger:   s.deps.Logger,
		Mappings: s.deps.Mappings,
		Database: s.deps.Database,
		Service:  s.deps.Name,
	}).Register(s.app)
}
