package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/s1natex/todo-web-GO/internal/api"
)

type SQLiteRepo struct {
	db *sql.DB
}

// timeLayout is fixed width so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

func (r *SQLiteRepo) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_json, checked, cookies_json, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id)

	var (
		s                Session
		userJSON         sql.NullString
		cookiesJSON      string
		created, updated string
	)
	if err := row.Scan(&s.ID, &userJSON, &s.Checked, &cookiesJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if userJSON.Valid {
		var u api.User
		if err := json.Unmarshal([]byte(userJSON.String), &u); err != nil {
			return nil, fmt.Errorf("session %s: user: %w", id, err)
		}
		s.User = &u
	}

	var cookies []storedCookie
	if err := json.Unmarshal([]byte(cookiesJSON), &cookies); err != nil {
		return nil, fmt.Errorf("session %s: cookies: %w", id, err)
	}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}

	if ts, err := time.Parse(timeLayout, created); err == nil {
		s.CreatedAt = ts
	}
	if ts, err := time.Parse(timeLayout, updated); err == nil {
		s.UpdatedAt = ts
	}
	return &s, nil
}

// Save upserts the session.
func (r *SQLiteRepo) Save(ctx context.Context, s *Session) error {
	var userJSON sql.NullString
	if s.User != nil {
		b, err := json.Marshal(s.User)
		if err != nil {
			return err
		}
		userJSON = sql.NullString{String: string(b), Valid: true}
	}

	cookies := make([]storedCookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookies = append(cookies, storedCookie{Name: c.Name, Value: c.Value})
	}
	cookiesJSON, err := json.Marshal(cookies)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_json, checked, cookies_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			checked = excluded.checked,
			cookies_json = excluded.cookies_json,
			updated_at = excluded.updated_at
	`, s.ID, userJSON, s.Checked, string(cookiesJSON),
		s.CreatedAt.UTC().Format(timeLayout), s.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`,
		t.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_json TEXT,
	checked INTEGER NOT NULL DEFAULT 0,
	cookies_json TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions (updated_at);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
