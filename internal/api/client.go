// Package api is a client for the to-do REST API. A Client carries one
// browser session's API cookies; every call sends them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	"github.com/s1natex/todo-web-GO/internal/tasks"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

type Client struct {
	base *url.URL
	jar  *cookiejar.Jar
	http *http.Client
}

// NewTransport wraps base (or http.DefaultTransport) with client spans.
func NewTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "api " + r.Method + " " + r.URL.Path
		}),
	)
}

// ParseBaseURL validates the API root, e.g. "http://127.0.0.1:5000".
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("api base url: missing host")
	}
	return u, nil
}

// New returns a client for base seeded with previously saved cookies.
// No timeout is set; calls are bounded by their context.
func New(base *url.URL, transport http.RoundTripper, cookies []*http.Cookie) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 {
		restored := make([]*http.Cookie, 0, len(cookies))
		for _, c := range cookies {
			restored = append(restored, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
		}
		jar.SetCookies(base, restored)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		base: base,
		jar:  jar,
		http: &http.Client{Transport: transport, Jar: jar},
	}, nil
}

// Cookies returns the API cookies currently held, for persisting.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var out userResponse
	if err := c.do(ctx, "register", http.MethodPost, "/api/register", req, &out); err != nil {
		return User{}, err
	}
	return userFrom("register", out)
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out userResponse
	if err := c.do(ctx, "login", http.MethodPost, "/api/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return User{}, err
	}
	return userFrom("login", out)
}

// Profile returns the user the API session belongs to.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var out userResponse
	if err := c.do(ctx, "profile", http.MethodGet, "/api/profile", nil, &out); err != nil {
		return User{}, err
	}
	return userFrom("profile", out)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/logout", nil, nil)
}

// ListTasks returns the full task list in API order.
func (c *Client) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	var out tasksResponse
	if err := c.do(ctx, "list_tasks", http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	if out.Tasks == nil {
		return []tasks.Task{}, nil
	}
	return out.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, title string) error {
	var out createTaskResponse
	return c.do(ctx, "create_task", http.MethodPost, "/api/tasks", createTaskRequest{Title: title}, &out)
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status tasks.Status) error {
	return c.do(ctx, "update_task", http.MethodPut, taskPath(id), updateTaskRequest{Status: status}, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, "delete_task", http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}

func userFrom(op string, resp userResponse) (User, error) {
	if resp.User == nil {
		return User{}, &NetworkError{Op: op, Err: errors.New("response has no user")}
	}
	return *resp.User, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe(op, "network_error", start)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	observe(op, strconv.Itoa(resp.StatusCode), start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		var e errResponse
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
