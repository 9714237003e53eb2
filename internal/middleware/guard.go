package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1natex/todo-web-GO/internal/session"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Placeholder renders the page shown while a session's status is unknown.
type Placeholder interface {
	Loading(w http.ResponseWriter) error
}

// Sessions loads the browser's session, runs its startup status check if it
// has not had one, and stores both in the request context.
func Sessions(m *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Load(w, r)
			if err != nil {
				logger.Error("session_load_failed", slog.String("error", err.Error()))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("session.id", s.ID))

			loading, err := m.Ensure(r.Context(), s)
			if err != nil {
				logger.Error("session_check_failed",
					slog.String("session_id", s.ID),
					slog.String("error", err.Error()),
				)
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s, loading)))
		})
	}
}

// PublicOnly guards pages meant for visitors, like login and register.
// Logged-in sessions are sent to the dashboard.
func PublicOnly(p Placeholder, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(p, logger, func(s *session.Session) (string, bool) {
		if s.Authenticated() {
			return DashboardPath, false
		}
		return "", true
	})
}

// Protected guards pages that need a user. Everyone else is sent to login.
func Protected(p Placeholder, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(p, logger, func(s *session.Session) (string, bool) {
		if !s.Authenticated() {
			return LoginPath, false
		}
		return "", true
	})
}

// guard renders the placeholder while loading; otherwise allow decides
// between serving next and redirecting.
func guard(p Placeholder, logger *slog.Logger, allow func(*session.Session) (redirect string, ok bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, found := session.FromContext(r.Context())
			if !found || session.Loading(r.Context()) {
				if err := p.Loading(w); err != nil {
					logger.Error("render_failed", slog.String("page", "loading"), slog.String("error", err.Error()))
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
				return
			}
			if to, ok := allow(s); !ok {
				guardRedirectsTotal.WithLabelValues(to).Inc()
				http.Redirect(w, r, to, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
