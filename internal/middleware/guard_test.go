package middleware_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/todo-web-GO/internal/api"
	appmw "github.com/s1natex/todo-web-GO/internal/middleware"
	"github.com/s1natex/todo-web-GO/internal/session"
	"github.com/s1natex/todo-web-GO/internal/testutil"
)

type stubPlaceholder struct{ calls int }

func (p *stubPlaceholder) Loading(w http.ResponseWriter) error {
	p.calls++
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "loading")
	return nil
}

type brokenPlaceholder struct{}

func (brokenPlaceholder) Loading(w http.ResponseWriter) error {
	return errors.New("template missing")
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "page")
}

func guarded(mw func(http.Handler) http.Handler, s *session.Session, loading bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if s != nil {
		req = req.WithContext(session.NewContext(req.Context(), s, loading))
	}
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
	return rec
}

func TestGuards(t *testing.T) {
	user := &api.User{ID: "1", Name: "Ada", Email: "ada@example.com"}

	cases := []struct {
		name     string
		guard    string
		session  *session.Session
		loading  bool
		wantCode int
		wantLoc  string
		wantBody string
	}{
		{"protected anonymous", "protected", &session.Session{ID: "a", Checked: true}, false, http.StatusFound, "/login", ""},
		{"protected user", "protected", &session.Session{ID: "a", Checked: true, User: user}, false, http.StatusOK, "", "page"},
		{"public anonymous", "public", &session.Session{ID: "a", Checked: true}, false, http.StatusOK, "", "page"},
		{"public user", "public", &session.Session{ID: "a", Checked: true, User: user}, false, http.StatusFound, "/dashboard", ""},
		{"protected unchecked", "protected", &session.Session{ID: "a"}, false, http.StatusOK, "", "loading"},
		{"public check in flight", "public", &session.Session{ID: "a"}, true, http.StatusOK, "", "loading"},
		{"protected no session", "protected", nil, false, http.StatusOK, "", "loading"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubPlaceholder{}
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			mw := appmw.Protected(p, logger)
			if tc.guard == "public" {
				mw = appmw.PublicOnly(p, logger)
			}

			rec := guarded(mw, tc.session, tc.loading)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tc.wantLoc {
				t.Fatalf("expected Location %q, got %q", tc.wantLoc, loc)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Fatalf("expected body %q, got %q", tc.wantBody, rec.Body.String())
			}
			if tc.wantBody == "loading" && p.calls != 1 {
				t.Fatalf("expected placeholder to render once, got %d", p.calls)
			}
		})
	}
}

func TestGuards_PlaceholderFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	for name, mw := range map[string]func(http.Handler) http.Handler{
		"protected": appmw.Protected(brokenPlaceholder{}, logger),
		"public":    appmw.PublicOnly(brokenPlaceholder{}, logger),
	} {
		t.Run(name, func(t *testing.T) {
			logs.Reset()
			rec := guarded(mw, &session.Session{ID: "a"}, false)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			if !bytes.Contains(logs.Bytes(), []byte(`"msg":"render_failed"`)) {
				t.Fatalf("expected render failure to be logged, got %s", logs.String())
			}
		})
	}
}

func TestSessions_ChecksOnFirstRequest(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ada", "ada@example.com", "secret")

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := session.NewManager(session.NewInMemoryRepo(), session.Options{
		CookieName: "todo_session",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		MaxAge:     time.Hour,
		APIBase:    fake.URL(),
	}, logger)

	var seen *session.Session
	var loading bool
	r := chi.NewRouter()
	r.Use(appmw.Sessions(m, logger))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.FromContext(r.Context())
		loading = session.Loading(r.Context())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil {
		t.Fatalf("expected a session in the request context")
	}
	if !seen.Checked || loading {
		t.Fatalf("expected status check to have run, checked=%v loading=%v", seen.Checked, loading)
	}
	if seen.Authenticated() {
		t.Fatalf("a new browser should not be authenticated")
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatalf("expected a session cookie to be set")
	}

	calls := fake.Calls()
	if len(calls) != 1 || calls[0] != "GET /api/profile" {
		t.Fatalf("expected one profile call, got %v", calls)
	}
}
