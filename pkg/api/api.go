// Package api implements the REST API of the sdb monitor: expression
// evaluation, tokenization, value history and watchpoints.
package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/sdb/pkg/expr"
	"github.com/lemonberrylabs/sdb/pkg/monitor"
	"github.com/lemonberrylabs/sdb/pkg/store"
	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Server is the HTTP API server for the sdb monitor.
type Server struct {
	app     *fiber.App
	monitor *monitor.Monitor
	logger  zerolog.Logger
}

// New creates a new API server around a monitor.
func New(m *monitor.Monitor, logger zerolog.Logger) *Server {
	srv := &Server{
		monitor: m,
		logger:  logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Expressions
	app.Post("/v1/eval", srv.evaluate)
	app.Post("/v1/tokenize", srv.tokenize)
	app.Get("/v1/history", srv.listHistory)

	// Watchpoints
	app.Get("/v1/watchpoints", srv.listWatchpoints)
	app.Post("/v1/watchpoints", srv.createWatchpoint)
	app.Get("/v1/watchpoints/:id", srv.getWatchpoint)
	app.Delete("/v1/watchpoints/:id", srv.deleteWatchpoint)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

type exprRequest struct {
	Expr string `json:"expr"`
}

// bindExpr reads the expression from the request body. A non-empty
// problem describes why the request is invalid.
func bindExpr(c *fiber.Ctx) (text, problem string) {
	var req exprRequest
	if err := c.BodyParser(&req); err != nil {
		return "", "invalid request body: " + err.Error()
	}
	if req.Expr == "" {
		return "", "expr is required"
	}
	return req.Expr, ""
}

// --- Expression Handlers ---

func (s *Server) evaluate(c *fiber.Ctx) error {
	text, problem := bindExpr(c)
	if problem != "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", problem)
	}

	entry, err := s.monitor.Print(text)
	if err != nil {
		return s.exprErrorResponse(c, text, err)
	}

	return c.JSON(fiber.Map{
		"expr":    entry.Expr,
		"value":   int32(entry.Value),
		"hex":     entry.Value.Hex(),
		"history": entry.N,
	})
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	text, problem := bindExpr(c)
	if problem != "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", problem)
	}

	tokens, err := s.monitor.Evaluator().Tokenize(text)
	if err != nil {
		return s.exprErrorResponse(c, text, err)
	}

	return c.JSON(fiber.Map{
		"tokens": tokensToJSON(tokens),
	})
}

func (s *Server) listHistory(c *fiber.Ctx) error {
	history := s.monitor.Store().History()

	items := make([]fiber.Map, len(history))
	for i, e := range history {
		items[i] = fiber.Map{
			"n":     e.N,
			"expr":  e.Expr,
			"value": int32(e.Value),
			"hex":   e.Value.Hex(),
			"time":  e.Time.Format(time.RFC3339),
		}
	}

	return c.JSON(fiber.Map{
		"history": items,
	})
}

// --- Watchpoint Handlers ---

func (s *Server) createWatchpoint(c *fiber.Ctx) error {
	text, problem := bindExpr(c)
	if problem != "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", problem)
	}

	wp, err := s.monitor.Watch(text)
	if err != nil {
		return s.exprErrorResponse(c, text, err)
	}
	return c.Status(200).JSON(watchpointToJSON(wp))
}

func (s *Server) getWatchpoint(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "watchpoint id must be a number")
	}

	wp, err := s.monitor.Store().GetWatchpoint(id)
	if err != nil {
		return errorResponse(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(watchpointToJSON(wp))
}

func (s *Server) listWatchpoints(c *fiber.Ctx) error {
	wps := s.monitor.Store().ListWatchpoints()

	items := make([]fiber.Map, len(wps))
	for i, wp := range wps {
		items[i] = watchpointToJSON(wp)
	}

	return c.JSON(fiber.Map{
		"watchpoints": items,
	})
}

func (s *Server) deleteWatchpoint(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "watchpoint id must be a number")
	}

	if err := s.monitor.Store().DeleteWatchpoint(id); err != nil {
		return errorResponse(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(fiber.Map{})
}

// --- Helpers ---

func errorResponse(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func (s *Server) exprErrorResponse(c *fiber.Ctx, text string, err error) error {
	s.logger.Debug().Str("expr", text).Err(err).Msg("expression rejected")

	ee, ok := types.AsExprError(err)
	if !ok {
		return errorResponse(c, 500, "INTERNAL", err.Error())
	}

	status := "INVALID_ARGUMENT"
	if ee.HasTag(types.TagResourceLimitError) {
		status = "RESOURCE_EXHAUSTED"
	}
	body := ee.ToMap()
	body["code"] = 400
	body["status"] = status
	return c.Status(400).JSON(fiber.Map{
		"error": body,
	})
}

func tokensToJSON(tokens []expr.Token) []fiber.Map {
	items := make([]fiber.Map, len(tokens))
	for i, tok := range tokens {
		items[i] = fiber.Map{
			"kind": tok.Kind.String(),
			"text": tok.Text,
			"pos":  tok.Pos,
		}
	}
	return items
}

func watchpointToJSON(wp store.Watchpoint) fiber.Map {
	return fiber.Map{
		"id":         wp.ID,
		"expr":       wp.Expr,
		"value":      int32(wp.Value),
		"hex":        wp.Value.Hex(),
		"createTime": wp.CreateTime.Format(time.RFC3339),
	}
}
