package api

import (
	"strings"
	"unicode/utf8"

	"github.com/s1natex/todo-web-GO/internal/tasks"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName is the name shown in the dashboard header.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) == "" {
		return "User"
	}
	return u.Name
}

// Initial is the upper-cased first letter of the name, or "U".
func (u User) Initial() string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(u.Name))
	if r == utf8.RuneError {
		return "U"
	}
	return strings.ToUpper(string(r))
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user"`
}

type tasksResponse struct {
	Tasks []tasks.Task `json:"tasks"`
}

type createTaskRequest struct {
	Title string `json:"title"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

type updateTaskRequest struct {
	Status tasks.Status `json:"status"`
}

type errResponse struct {
	Error string `json:"error"`
}
