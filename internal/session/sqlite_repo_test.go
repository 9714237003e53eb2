package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/s1natex/todo-web-GO/internal/api"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func repos(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewInMemoryRepo(),
		"sqlite": newTempDB(t),
	}
}

func TestRepo_SaveAndGet(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)

			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			s := &Session{ID: "s1", CreatedAt: now, UpdatedAt: now}
			if err := repo.Save(ctx, s); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := repo.Get(ctx, "s1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.User != nil || got.Checked || len(got.Cookies) != 0 {
				t.Fatalf("fresh session should be empty: %+v", got)
			}
			if !got.CreatedAt.Equal(now) {
				t.Fatalf("created_at = %v, want %v", got.CreatedAt, now)
			}

			s.User = &api.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
			s.Checked = true
			s.Cookies = []*http.Cookie{{Name: "session", Value: "tok"}}
			s.UpdatedAt = now.Add(time.Minute)
			if err := repo.Save(ctx, s); err != nil {
				t.Fatalf("update: %v", err)
			}

			got, err = repo.Get(ctx, "s1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.User == nil || got.User.Name != "Ada" || !got.Checked {
				t.Fatalf("unexpected session: %+v", got)
			}
			if len(got.Cookies) != 1 || got.Cookies[0].Value != "tok" {
				t.Fatalf("unexpected cookies: %+v", got.Cookies)
			}

			if err := repo.Delete(ctx, "s1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := repo.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestRepo_GetReturnsCopy(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := &Session{ID: "s1", User: &api.User{Name: "Ada"}}
			_ = repo.Save(ctx, s)
			s.User.Name = "changed"

			got, _ := repo.Get(ctx, "s1")
			if got.User.Name != "Ada" {
				t.Fatalf("stored session was mutated through caller pointer: %q", got.User.Name)
			}
		})
	}
}

func TestRepo_PurgeBefore(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
			_ = repo.Save(ctx, &Session{ID: "old", CreatedAt: base, UpdatedAt: base})
			_ = repo.Save(ctx, &Session{ID: "edge", CreatedAt: base, UpdatedAt: base.Add(time.Hour + 500*time.Millisecond)})
			_ = repo.Save(ctx, &Session{ID: "new", CreatedAt: base, UpdatedAt: base.Add(2 * time.Hour)})

			n, err := repo.PurgeBefore(ctx, base.Add(time.Hour))
			if err != nil {
				t.Fatalf("purge: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected 1 purged, got %d", n)
			}
			if _, err := repo.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("old session should be gone")
			}
			for _, id := range []string{"edge", "new"} {
				if _, err := repo.Get(ctx, id); err != nil {
					t.Fatalf("%s session should remain: %v", id, err)
				}
			}
		})
	}
}
