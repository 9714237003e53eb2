package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/todo-web-GO/internal/api"
	"github.com/s1natex/todo-web-GO/internal/session"
	"github.com/s1natex/todo-web-GO/internal/tasks"
	"github.com/s1natex/todo-web-GO/internal/web"
)

const maxFormBytes = 64 << 10

type Handler struct {
	sessions *session.Manager
	render   *web.Renderer
	inflight *Inflight
	lists    *Lists
	logger   *slog.Logger
}

// NewHandler builds the dashboard. Cached lists are kept for at most
// listTTL, which should match the session lifetime.
func NewHandler(sessions *session.Manager, render *web.Renderer, listTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		render:   render,
		inflight: NewInflight(),
		lists:    NewLists(listTTL),
		logger:   logger,
	}
}

// Forget drops what the dashboard remembers about a session.
func (h *Handler) Forget(sessionID string) {
	h.lists.Drop(sessionID)
}

// RegisterRoutes mounts the dashboard. The caller is expected to guard these
// routes so that only logged-in sessions reach them.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/dashboard", h.show)
	r.Post("/dashboard/tasks", h.add)
	r.Post("/dashboard/tasks/{id}/status", h.cycle)
	r.Post("/dashboard/tasks/{id}/delete", h.remove)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(v *View) int {
		v.Refresh(r.Context())
		return http.StatusOK
	})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	title := r.PostForm.Get("title")

	h.serve(w, r, func(v *View) int {
		if !v.Add(r.Context(), title) && v.Failure == nil {
			return http.StatusUnprocessableEntity
		}
		return http.StatusOK
	})
}

func (h *Handler) cycle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	current := tasks.Status(r.PostForm.Get("status"))

	h.serve(w, r, func(v *View) int {
		v.Cycle(r.Context(), id, current)
		return http.StatusOK
	})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.serve(w, r, func(v *View) int {
		v.Delete(r.Context(), id)
		return http.StatusOK
	})
}

// serve builds a view over the session's API client, seeded with the last
// list this session saw, runs act, saves any cookie changes and renders the
// dashboard. A session the API no longer accepts, or one that was logged
// out while the request ran, is sent to the login page.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, act func(v *View) int) {
	ctx := r.Context()
	s, ok := session.FromContext(ctx)
	if !ok || s.User == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	client, err := h.sessions.Client(s)
	if err != nil {
		h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not reach the task service.", err)
		return
	}

	v := NewView(client, h.inflight, s.ID)
	if list, ok := h.lists.Get(s.ID, s.User.ID); ok {
		v.Seed(list)
	}
	status := act(v)
	if !v.Loaded && !v.Rejected {
		// Nothing cached and nothing fetched: the page still needs a list.
		v.Refresh(ctx)
	}

	if api.IsUnauthorized(v.Failure) {
		h.logger.Info("session_expired", slog.String("session_id", s.ID), slog.String("user_id", s.User.ID))
		if err := h.sessions.Expire(ctx, s); err != nil {
			h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not save your session.", err)
			return
		}
		h.Forget(s.ID)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if v.Failure != nil {
		h.logger.Warn("upstream_error",
			slog.String("session_id", s.ID),
			slog.Bool("network", v.NetworkFailure()),
			slog.String("error", v.Failure.Error()),
		)
	}
	if shown := tasks.GroupByStatus(v.Tasks).Len(); shown < len(v.Tasks) {
		h.logger.Warn("tasks_hidden",
			slog.String("session_id", s.ID),
			slog.Int("hidden", len(v.Tasks)-shown),
		)
	}

	if err := h.sessions.Persist(ctx, s, client); err != nil {
		if errors.Is(err, session.ErrStale) {
			h.logger.Info("session_stale", slog.String("session_id", s.ID))
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not save your session.", err)
		return
	}
	if v.Loaded {
		h.lists.Put(s.ID, s.User.ID, v.Tasks)
	}

	if err := h.render.Render(w, status, web.PageDashboard, v.Page(*s.User)); err != nil {
		h.logger.Error("render_failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
