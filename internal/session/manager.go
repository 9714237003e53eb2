// Package session keeps the per-browser session state: the current user,
// whether it has been checked against the API, and the API cookies used to
// act on the user's behalf.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/s1natex/todo-web-GO/internal/api"
)

const keySessionID = "sid"

// ErrStale is returned when a request's copy of a session no longer matches
// the stored one: it was logged out, expired or purged meanwhile.
var ErrStale = errors.New("session changed during request")

type Options struct {
	CookieName string
	Secret     []byte
	Secure     bool
	MaxAge     time.Duration

	APIBase   *url.URL
	Transport http.RoundTripper
}

type Manager struct {
	repo      Repository
	cookies   *sessions.CookieStore
	name      string
	apiBase   *url.URL
	transport http.RoundTripper
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	checking map[string]struct{}

	// writeMu serializes read-modify-write updates of stored sessions.
	writeMu sync.Mutex
}

func NewManager(repo Repository, opts Options, logger *slog.Logger) *Manager {
	store := sessions.NewCookieStore(opts.Secret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(opts.MaxAge.Seconds()))

	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:      repo,
		cookies:   store,
		name:      opts.CookieName,
		apiBase:   opts.APIBase,
		transport: opts.Transport,
		logger:    logger,
		now:       time.Now,
		checking:  make(map[string]struct{}),
	}
}

// Load returns the session the request's cookie points at. Browsers without
// a cookie, or with one for a session that no longer exists, get a fresh
// unchecked session and a new cookie. Load must run before the response
// header is written.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	gs, err := m.cookies.Get(r, m.name)
	if err != nil {
		// Undecodable cookie (rotated secret, tampering): start over.
		m.logger.Debug("session_cookie_invalid", slog.String("error", err.Error()))
		gs, err = m.cookies.New(r, m.name)
		if gs == nil {
			return nil, fmt.Errorf("session cookie: %w", err)
		}
	}

	if id, ok := gs.Values[keySessionID].(string); ok && id != "" {
		s, err := m.repo.Get(r.Context(), id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	now := m.now().UTC()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := m.repo.Save(r.Context(), s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	gs.Values[keySessionID] = s.ID
	if err := gs.Save(r, w); err != nil {
		return nil, fmt.Errorf("session cookie: %w", err)
	}
	return s, nil
}

// Client returns an API client carrying the session's API cookies.
func (m *Manager) Client(s *Session) (*api.Client, error) {
	return api.New(m.apiBase, m.transport, s.Cookies)
}

// Ensure runs the startup status check for a session that has not had one.
// It reports loading when another request is already checking this session.
func (m *Manager) Ensure(ctx context.Context, s *Session) (loading bool, err error) {
	if s.Checked {
		return false, nil
	}
	if !m.beginCheck(s.ID) {
		return true, nil
	}
	defer m.endCheck(s.ID)
	return false, m.CheckStatus(ctx, s)
}

func (m *Manager) beginCheck(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.checking[id]; busy {
		return false
	}
	m.checking[id] = struct{}{}
	return true
}

func (m *Manager) endCheck(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checking, id)
}

// CheckStatus asks the API who the session belongs to. Success sets the
// user; any failure leaves it as it was. Either way the session is marked
// checked. A session settled by a concurrent login is left alone.
func (m *Manager) CheckStatus(ctx context.Context, s *Session) error {
	c, err := m.Client(s)
	if err != nil {
		return err
	}

	u, err := c.Profile(ctx)
	if err != nil {
		m.logger.Debug("session_check",
			slog.String("session_id", s.ID),
			slog.Bool("authenticated", false),
			slog.String("reason", err.Error()),
		)
	} else {
		m.logger.Debug("session_check",
			slog.String("session_id", s.ID),
			slog.Bool("authenticated", true),
		)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if cur, gerr := m.repo.Get(ctx, s.ID); gerr == nil && cur.Checked {
		*s = *cur
		return nil
	}
	if err == nil {
		s.User = &u
	}
	s.Checked = true
	s.Cookies = c.Cookies()
	return m.save(ctx, s)
}

// Login sets the session's user to u as given, along with the API cookies
// that came with it.
func (m *Manager) Login(ctx context.Context, s *Session, u api.User, cookies []*http.Cookie) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	s.User = &u
	s.Checked = true
	s.Cookies = cookies
	return m.save(ctx, s)
}

// Logout tells the API to end its session and drops the local one no
// matter how that went. The API error, if any, is returned after the
// session has been removed.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	var callErr error
	c, err := m.Client(s)
	if err != nil {
		callErr = err
	} else {
		callErr = c.Logout(ctx)
	}

	if err := m.Expire(ctx, s); err != nil {
		return err
	}
	return callErr
}

// Expire removes the stored session without calling the API. Requests
// still holding a copy of it get ErrStale from Persist. The browser gets a
// fresh session on its next request.
func (m *Manager) Expire(ctx context.Context, s *Session) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.repo.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session %s: %w", s.ID, err)
	}
	s.User = nil
	s.Checked = true
	s.Cookies = nil
	return nil
}

// Persist stores the cookies c holds after API calls made for s. Only the
// cookies are written, and only while the stored session still belongs to
// the user s was loaded with; otherwise it returns ErrStale.
func (m *Manager) Persist(ctx context.Context, s *Session, c *api.Client) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur, err := m.repo.Get(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", s.ID, err)
	}
	if !sameUser(cur.User, s.User) {
		return ErrStale
	}

	cur.Cookies = c.Cookies()
	if err := m.save(ctx, cur); err != nil {
		return err
	}
	s.Cookies = cur.Cookies
	s.UpdatedAt = cur.UpdatedAt
	return nil
}

func sameUser(a, b *api.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// RunJanitor purges sessions idle for longer than maxIdle every interval
// until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.repo.PurgeBefore(ctx, m.now().Add(-maxIdle))
			if err != nil {
				m.logger.Error("session_purge_failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				m.logger.Info("session_purge", slog.Int64("removed", n))
			}
		}
	}
}
