// Package web renders the application's HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/s1natex/todo-web-GO/internal/api"
	"github.com/s1natex/todo-web-GO/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageRegister  = "register"
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageLoading   = "loading"
	PageError     = "error"
)

var pages = []string{PageRegister, PageLogin, PageDashboard, PageLoading, PageError}

// AuthPage backs the register and login forms. Passwords are never echoed.
type AuthPage struct {
	Error string
	Name  string
	Email string
}

type DashboardPage struct {
	User    api.User
	Columns []Column
	Error   string
	NewTask string
}

type Column struct {
	Title  string
	Status tasks.Status
	Tasks  []TaskItem
}

type TaskItem struct {
	tasks.Task
	// Updating hides the status control while a change to this task is in
	// flight.
	Updating bool
}

type errorPage struct {
	Message string
}

type Renderer struct {
	pages map[string]*template.Template
	now   func() time.Time
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template), now: time.Now}
	funcs := template.FuncMap{
		"lower": strings.ToLower,
		"since": func(t time.Time) string { return humanize.RelTime(t, r.now(), "ago", "from now") },
	}
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a template error never leaves
// a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Loading renders the placeholder shown while a session's status is being
// checked. It refreshes itself.
func (r *Renderer) Loading(w http.ResponseWriter) error {
	return r.Render(w, http.StatusOK, PageLoading, nil)
}

// Fail logs err and renders a generic error page with status.
func (r *Renderer) Fail(w http.ResponseWriter, logger *slog.Logger, status int, msg string, err error) {
	logger.Error("request_failed", slog.String("error", err.Error()), slog.Int("status", status))
	if rerr := r.Render(w, status, PageError, errorPage{Message: msg}); rerr != nil {
		http.Error(w, msg, status)
	}
}

// BuildColumns lays out a board in display order, marking tasks that are
// being updated.
func BuildColumns(b tasks.Board, updating map[string]bool) []Column {
	titles := map[tasks.Status]string{
		tasks.StatusPending:   "Pending",
		tasks.StatusOngoing:   "Ongoing",
		tasks.StatusCompleted: "Completed",
	}
	cols := make([]Column, 0, len(tasks.Statuses))
	for _, s := range tasks.Statuses {
		col := Column{Title: titles[s], Status: s}
		for _, t := range b.Column(s) {
			col.Tasks = append(col.Tasks, TaskItem{Task: t, Updating: updating[t.ID]})
		}
		cols = append(cols, col)
	}
	return cols
}
