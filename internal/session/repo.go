package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/s1natex/todo-web-GO/internal/api"
)

var ErrNotFound = errors.New("session not found")

// Session is what the frontend believes about one browser: who is logged
// in, whether that has been checked against the API yet, and the API's own
// session cookies.
type Session struct {
	ID        string
	User      *api.User
	Checked   bool
	Cookies   []*http.Cookie
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Authenticated reports whether a user is set.
func (s *Session) Authenticated() bool { return s.User != nil }

func (s *Session) clone() *Session {
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Cookies = make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cc := *c
		out.Cookies = append(out.Cookies, &cc)
	}
	return &out
}

type Repository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// PurgeBefore removes sessions not updated since t and returns how many.
	PurgeBefore(ctx context.Context, t time.Time) (int64, error)
}

type InMemoryRepo struct {
	mu    sync.Mutex
	store map[string]*Session
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[string]*Session),
	}
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

func (r *InMemoryRepo) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[s.ID] = s.clone()
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) PurgeBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.store {
		if s.UpdatedAt.Before(t) {
			delete(r.store, id)
			n++
		}
	}
	return n, nil
}
