// Package testutil provides testing utilities.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/todo-web-GO/internal/tasks"
)

// SessionCookie is the cookie name the fake API issues on login.
const SessionCookie = "session"

type fakeUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	password string
}

type failure struct {
	status  int
	message string
}

// FakeAPI is an in-memory implementation of the to-do REST API served over
// httptest. Sessions are cookie based, like the real API.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	seq      int
	users    map[string]*fakeUser // email -> user
	sessions map[string]string    // token -> email
	tasks    map[string][]tasks.Task
	calls    []string
	failures map[string]failure
	hold     map[string]chan struct{}
}

// NewFakeAPI starts a fake API that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:    make(map[string]*fakeUser),
		sessions: make(map[string]string),
		tasks:    make(map[string][]tasks.Task),
		failures: make(map[string]failure),
		hold:     make(map[string]chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Post("/api/register", f.register)
	r.Post("/api/login", f.login)
	r.Group(func(r chi.Router) {
		r.Use(f.requireLogin)
		r.Get("/api/profile", f.profile)
		r.Post("/api/logout", f.logout)
		r.Get("/api/tasks", f.listTasks)
		r.Post("/api/tasks", f.createTask)
		r.Put("/api/tasks/{id}", f.updateTask)
		r.Delete("/api/tasks/{id}", f.deleteTask)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server root.
func (f *FakeAPI) URL() *url.URL {
	u, _ := url.Parse(f.Server.URL)
	return u
}

// AddUser registers a user directly and returns its id.
func (f *FakeAPI) AddUser(name, email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(name, email, password).ID
}

func (f *FakeAPI) addUserLocked(name, email, password string) *fakeUser {
	f.seq++
	u := &fakeUser{ID: "u" + strconv.Itoa(f.seq), Name: name, Email: email, password: password}
	f.users[email] = u
	return u
}

// SessionFor opens an API session for email and returns its cookie.
func (f *FakeAPI) SessionFor(email string) *http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openSessionLocked(email)
}

func (f *FakeAPI) openSessionLocked(email string) *http.Cookie {
	f.seq++
	token := "tok" + strconv.Itoa(f.seq)
	f.sessions[token] = email
	return &http.Cookie{Name: SessionCookie, Value: token, Path: "/"}
}

// Seed appends tasks for a user. Empty ids are filled in.
func (f *FakeAPI) Seed(email string, list ...tasks.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range list {
		if t.ID == "" {
			f.seq++
			t.ID = "t" + strconv.Itoa(f.seq)
		}
		f.tasks[email] = append(f.tasks[email], t)
	}
}

// Tasks returns a copy of a user's tasks.
func (f *FakeAPI) Tasks(email string) []tasks.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tasks.Task, len(f.tasks[email]))
	copy(out, f.tasks[email])
	return out
}

// Calls returns every request seen, as "METHOD /path".
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// ResetCalls clears the request log.
func (f *FakeAPI) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Fail makes every request to "METHOD /route" answer with status and an
// {"error": message} body. An empty message sends a non-JSON body.
func (f *FakeAPI) Fail(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, message: message}
}

// Hold blocks requests to "METHOD /route" until the returned func is called.
func (f *FakeAPI) Hold(route string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[route] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.hold, route)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		fail, failing := f.failures[routeKey(r)]
		ch := f.hold[routeKey(r)]
		f.mu.Unlock()

		if ch != nil {
			<-ch
		}
		if failing {
			if fail.message == "" {
				w.WriteHeader(fail.status)
				_, _ = w.Write([]byte("<html>upstream error</html>"))
				return
			}
			writeJSON(w, fail.status, map[string]string{"error": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeKey collapses task ids so failures can target "PUT /api/tasks/{id}".
func routeKey(r *http.Request) string {
	p := r.URL.Path
	const prefix = "/api/tasks/"
	if len(p) > len(prefix) && p[:len(prefix)] == prefix {
		p = prefix + "{id}"
	}
	return r.Method + " " + p
}

func (f *FakeAPI) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		f.mu.Lock()
		email, ok := f.sessions[c.Value]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		r.Header.Set("X-Fake-Email", email)
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name, email and password are required"})
		return
	}

	f.mu.Lock()
	if _, exists := f.users[in.Email]; exists {
		f.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "User with this email already exists"})
		return
	}
	u := f.addUserLocked(in.Name, in.Email, in.Password)
	cookie := f.openSessionLocked(in.Email)
	f.mu.Unlock()

	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": u})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	f.mu.Lock()
	u, ok := f.users[in.Email]
	if !ok || u.password != in.Password {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	cookie := f.openSessionLocked(in.Email)
	f.mu.Unlock()

	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": u})
}

func (f *FakeAPI) profile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	u := f.users[r.Header.Get("X-Fake-Email")]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Welcome " + u.Name + "!", "user": u})
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(SessionCookie)
	f.mu.Lock()
	delete(f.sessions, c.Value)
	f.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (f *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	list := f.Tasks(r.Header.Get("X-Fake-Email"))
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Title is required"})
		return
	}

	email := r.Header.Get("X-Fake-Email")
	f.mu.Lock()
	f.seq++
	t := tasks.Task{
		ID:        "t" + strconv.Itoa(f.seq),
		Title:     in.Title,
		Status:    tasks.StatusPending,
		CreatedAt: tasks.Timestamp{Time: time.Now().UTC()},
	}
	f.tasks[email] = append(f.tasks[email], t)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Task created successfully", "id": t.ID})
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	status, err := tasks.ParseStatus(in.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid status"})
		return
	}

	email := r.Header.Get("X-Fake-Email")
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks[email] {
		if t.ID != id {
			continue
		}
		now := tasks.Timestamp{Time: time.Now().UTC()}
		t.Status = status
		t.Completed = status == tasks.StatusCompleted
		t.UpdatedAt = now
		if t.Completed {
			t.CompletedAt = now
		}
		f.tasks[email][i] = t
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated successfully"})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-Fake-Email")
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks[email] {
		if t.ID == id {
			f.tasks[email] = append(f.tasks[email][:i], f.tasks[email][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
