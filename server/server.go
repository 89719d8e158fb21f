package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/discovery"
	"github.com/poiesic/jobfeed/scoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultLimit is the page size used when the request names none.
const DefaultLimit = 20

// Service is the discovery API served over HTTP.
type Service interface {
	Discover(ctx context.Context, profileID core.ID, cursor string, limit int) (*discovery.Page, error)
	RecordPositiveInteraction(ctx context.Context, profileID, candidateID core.ID) (*discovery.InteractionResult, error)
	Explain(ctx context.Context, profileID, candidateID core.ID) (*scoring.Explanation, error)
}

// Observer receives per-request measurements. Implemented by metrics.Metrics.
type Observer interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Server wraps a fiber app bound to a Service.
type Server struct {
	app      *fiber.App
	svc      Service
	validate *validator.Validate
	observer Observer
	gatherer prometheus.Gatherer
	health   func(context.Context) error
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithObserver records request metrics.
func WithObserver(o Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithGatherer serves the gatherer's metrics on /metrics.
// Without it /metrics is not registered.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithHealthCheck makes /healthz report the check's result.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.health = check
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New builds the HTTP server and registers all routes.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.app = fiber.New(fiber.Config{
		AppName:               "jobfeed",
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.observe)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	profiles := s.app.Group("/v1/profiles/:profileId")
	profiles.Get("/discover", s.discover)
	profiles.Post("/interactions", s.recordInteraction)
	profiles.Get("/candidates/:candidateId/explanation", s.explain)
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if s.observer == nil {
		return err
	}
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.observer.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

func (s *Server) healthz(c *fiber.Ctx) error {
	if s.health != nil {
		if err := s.health(c.UserContext()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) discover(c *fiber.Ctx) error {
	profileID, err := pathID(c, "profileId")
	if err != nil {
		return err
	}
	limit := DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
		}
	}

	page, err := s.svc.Discover(c.UserContext(), profileID, c.Query("cursor"), limit)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

type interactionRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,uuid"`
}

func (s *Server) recordInteraction(c *fiber.Ctx) error {
	profileID, err := pathID(c, "profileId")
	if err != nil {
		return err
	}
	var req interactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "candidate_id must be a uuid")
	}
	candidateID, err := core.ParseID(req.CandidateID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "candidate_id must be a uuid")
	}

	result, err := s.svc.RecordPositiveInteraction(c.UserContext(), profileID, candidateID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) explain(c *fiber.Ctx) error {
	profileID, err := pathID(c, "profileId")
	if err != nil {
		return err
	}
	candidateID, err := pathID(c, "candidateId")
	if err != nil {
		return err
	}
	explanation, err := s.svc.Explain(c.UserContext(), profileID, candidateID)
	if err != nil {
		return err
	}
	return c.JSON(explanation)
}

func pathID(c *fiber.Ctx, param string) (core.ID, error) {
	id, err := core.ParseID(c.Params(param))
	if err != nil {
		return core.NilID, fiber.NewError(fiber.StatusBadRequest, param+" must be a uuid")
	}
	return id, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	resp := errorResponse{Error: discovery.ErrorKind(err), Message: err.Error()}

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		resp = errorResponse{Error: kindForStatus(fe.Code), Message: fe.Message}
	case status == fiber.StatusInternalServerError:
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		resp.Message = "internal error"
	case status == fiber.StatusServiceUnavailable:
		resp.Message = "candidates are temporarily unavailable"
	}
	return c.Status(status).JSON(resp)
}

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch discovery.ErrorKind(err) {
	case discovery.KindInvalidArgument:
		return fiber.StatusBadRequest
	case discovery.KindNotFound:
		return fiber.StatusNotFound
	case discovery.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func kindForStatus(code int) string {
	switch {
	case code == fiber.StatusNotFound:
		return discovery.KindNotFound
	case code >= 400 && code < 500:
		return discovery.KindInvalidArgument
	case code == fiber.StatusServiceUnavailable:
		return discovery.KindUnavailable
	default:
		return discovery.KindInternal
	}
}
