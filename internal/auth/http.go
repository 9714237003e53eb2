// Package auth serves the register, login and logout pages.
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/s1natex/todo-web-GO/internal/api"
	appmw "github.com/s1natex/todo-web-GO/internal/middleware"
	"github.com/s1natex/todo-web-GO/internal/session"
	"github.com/s1natex/todo-web-GO/internal/web"
)

const (
	maxFormBytes = 16 << 10

	registerFailed = "Registration failed"
	loginFailed    = "Login failed"
	tooManyTries   = "Too many attempts. Please wait a moment and try again."
)

type Handler struct {
	sessions *session.Manager
	render   *web.Renderer
	limiter  *rate.Limiter
	logger   *slog.Logger
	onLogout func(sessionID string)
}

// NewHandler builds the auth pages. limiter may be nil to disable rate
// limiting; onLogout, when set, runs after a session logs out.
func NewHandler(sessions *session.Manager, render *web.Renderer, limiter *rate.Limiter, logger *slog.Logger, onLogout func(sessionID string)) *Handler {
	return &Handler{
		sessions: sessions,
		render:   render,
		limiter:  limiter,
		logger:   logger,
		onLogout: onLogout,
	}
}

// RegisterRoutes mounts the register and login pages. They belong behind a
// public-only guard.
func RegisterRoutes(r chi.Router, h *Handler) {
	limit := appmw.RateLimitMiddleware(h.limiter, h.limited)

	r.Get("/", h.registerForm)
	r.With(limit).Post("/", h.register)
	r.Get("/login", h.loginForm)
	r.With(limit).Post("/login", h.login)
}

// RegisterLogout mounts POST /logout. It belongs behind the protected guard.
func RegisterLogout(r chi.Router, h *Handler) {
	r.Post("/logout", h.logout)
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, http.StatusOK, web.PageRegister, web.AuthPage{})
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, http.StatusOK, web.PageLogin, web.AuthPage{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := api.RegisterRequest{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	form := web.AuthPage{Name: req.Name, Email: req.Email}

	h.signIn(w, r, web.PageRegister, form, registerFailed, func(c *api.Client) (api.User, error) {
		return c.Register(r.Context(), req)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")
	form := web.AuthPage{Email: email}

	h.signIn(w, r, web.PageLogin, form, loginFailed, func(c *api.Client) (api.User, error) {
		return c.Login(r.Context(), email, password)
	})
}

// signIn runs call with the session's API client. On success the returned
// user is logged into the session and the browser goes to the dashboard;
// otherwise page is shown again with the error.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, page string, form web.AuthPage, fallback string, call func(c *api.Client) (api.User, error)) {
	ctx := r.Context()
	s, ok := session.FromContext(ctx)
	if !ok {
		h.render.Fail(w, h.logger, http.StatusInternalServerError, "Something went wrong.", errors.New("no session in context"))
		return
	}

	c, err := h.sessions.Client(s)
	if err != nil {
		h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not reach the task service.", err)
		return
	}

	u, err := call(c)
	if err != nil {
		h.logger.Warn("upstream_error",
			slog.String("session_id", s.ID),
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		form.Error = api.Message(err, fallback)
		h.page(w, failureStatus(err), page, form)
		return
	}

	if err := h.sessions.Login(ctx, s, u, c.Cookies()); err != nil {
		h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not save your session.", err)
		return
	}
	h.logger.Info("user_login", slog.String("session_id", s.ID), slog.String("user_id", u.ID))
	http.Redirect(w, r, appmw.DashboardPath, http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, ok := session.FromContext(ctx)
	if !ok {
		http.Redirect(w, r, appmw.LoginPath, http.StatusFound)
		return
	}

	if err := h.sessions.Logout(ctx, s); err != nil {
		var apiErr *api.APIError
		var netErr *api.NetworkError
		if !errors.As(err, &apiErr) && !errors.As(err, &netErr) {
			h.render.Fail(w, h.logger, http.StatusInternalServerError, "Could not save your session.", err)
			return
		}
		h.logger.Warn("logout_upstream_error",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
	}
	if h.onLogout != nil {
		h.onLogout(s.ID)
	}
	http.Redirect(w, r, appmw.LoginPath, http.StatusFound)
}

// limited answers rate-limited form posts with the form and an error.
func (h *Handler) limited(w http.ResponseWriter, r *http.Request) {
	page := web.PageRegister
	if r.URL.Path == appmw.LoginPath {
		page = web.PageLogin
	}
	h.page(w, http.StatusTooManyRequests, page, web.AuthPage{Error: tooManyTries})
}

func (h *Handler) page(w http.ResponseWriter, status int, page string, data web.AuthPage) {
	if err := h.render.Render(w, status, page, data); err != nil {
		h.logger.Error("render_failed", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// failureStatus maps an upstream failure to the status of the re-rendered
// form: the API's own 4xx, or 502 when the API failed or was unreachable.
func failureStatus(err error) int {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
