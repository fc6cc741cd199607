// Package web provides the embedded web UI for the sdb monitor.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/sdb/pkg/expr"
	"github.com/lemonberrylabs/sdb/pkg/monitor"
	"github.com/lemonberrylabs/sdb/pkg/store"
	"github.com/lemonberrylabs/sdb/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	monitor *monitor.Monitor
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(m *monitor.Monitor) *Handler {
	return &Handler{
		monitor: m,
		funcMap: template.FuncMap{
			"formatTime": formatTime,
			"timeAgo":    timeAgo,
			"truncate":   truncate,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Parse templates fresh each time so define blocks don't conflict across pages
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/eval", h.evaluate)
	app.Get("/ui/tokens", h.tokens)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Expr        string
	Error       string
	Caret       string
	History     []store.HistoryEntry
	Watchpoints []store.Watchpoint
}

type tokensContent struct {
	Expr   string
	Tokens []expr.Token
	Error  string
	Caret  string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	history := h.monitor.Store().History()
	// Newest first
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	content := dashboardContent{
		Expr:        c.Query("expr"),
		Error:       c.Query("error"),
		History:     history,
		Watchpoints: h.monitor.Store().ListWatchpoints(),
	}
	if content.Error != "" {
		if pos := c.QueryInt("pos", -1); pos >= 0 {
			content.Caret = types.Caret(content.Expr, pos)
		}
	}

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) evaluate(c *fiber.Ctx) error {
	text := c.FormValue("expr")
	if text == "" {
		return c.Redirect("/ui")
	}

	var err error
	if c.FormValue("action") == "watch" {
		_, err = h.monitor.Watch(text)
	} else {
		_, err = h.monitor.Print(text)
	}
	if err == nil {
		return c.Redirect("/ui")
	}

	q := url.Values{}
	q.Set("expr", text)
	q.Set("error", err.Error())
	if ee, ok := types.AsExprError(err); ok && ee.Pos >= 0 {
		q.Set("pos", fmt.Sprint(ee.Pos))
	}
	return c.Redirect("/ui?" + q.Encode())
}

func (h *Handler) tokens(c *fiber.Ctx) error {
	text := c.Query("expr")
	content := tokensContent{Expr: text}

	if text != "" {
		tokens, err := h.monitor.Evaluator().Tokenize(text)
		if err != nil {
			content.Error = err.Error()
			if ee, ok := types.AsExprError(err); ok {
				content.Caret = ee.Caret(text)
			}
		}
		content.Tokens = tokens
	}

	return h.render(c, "tokens.html", "tokens", content)
}

// --- Template Functions ---

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	default:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
