// Package dashboard is the task list view: it loads the user's tasks,
// groups them by status and sends changes to the API. Every change is
// followed by a full reload of the list.
package dashboard

import (
	"context"
	"errors"

	"github.com/s1natex/todo-web-GO/internal/api"
	"github.com/s1natex/todo-web-GO/internal/tasks"
	"github.com/s1natex/todo-web-GO/internal/web"
)

const (
	msgEnterTask    = "Please enter a task"
	msgNoTasks      = "No tasks found"
	msgAddFailed    = "Failed to add task"
	msgUpdateFailed = "Failed to update task"
	msgDeleteFailed = "Failed to delete task"
)

// Backend is the part of the API the view needs.
type Backend interface {
	ListTasks(ctx context.Context) ([]tasks.Task, error)
	CreateTask(ctx context.Context, title string) error
	UpdateTaskStatus(ctx context.Context, id string, status tasks.Status) error
	DeleteTask(ctx context.Context, id string) error
}

// View holds one render's worth of task list state.
type View struct {
	backend   Backend
	inflight  *Inflight
	sessionID string

	Tasks []tasks.Task
	// Loaded is set once Tasks holds a list the API returned.
	Loaded bool
	// Err is the single message shown to the user, if any.
	Err string
	// Draft is the add-task input to show again after a failed add.
	Draft string
	// Failure is the last API error, kept for logging.
	Failure error
	// Rejected is set when input failed validation and nothing was sent.
	Rejected bool
}

func NewView(backend Backend, inflight *Inflight, sessionID string) *View {
	return &View{backend: backend, inflight: inflight, sessionID: sessionID}
}

// Seed starts the view from a previously fetched list.
func (v *View) Seed(list []tasks.Task) {
	v.Tasks = list
	v.Loaded = true
}

// Refresh replaces the list with the API's current one. On failure the old
// list is kept and Err is set.
func (v *View) Refresh(ctx context.Context) {
	list, err := v.backend.ListTasks(ctx)
	if err != nil {
		v.fail(err, msgNoTasks)
		return
	}
	v.Tasks = list
	v.Loaded = true
}

// Add creates a task and reloads the list. Blank titles are rejected
// without calling the API.
func (v *View) Add(ctx context.Context, title string) bool {
	if err := tasks.ValidateTitle(title); err != nil {
		v.Err = msgEnterTask
		v.Draft = title
		v.Rejected = true
		return false
	}

	v.Err = ""
	if err := v.backend.CreateTask(ctx, title); err != nil {
		v.fail(err, msgAddFailed)
		v.Draft = title
		return false
	}
	v.Draft = ""
	v.Refresh(ctx)
	return true
}

// Cycle moves a task to the status after current and reloads the list.
func (v *View) Cycle(ctx context.Context, id string, current tasks.Status) bool {
	end := v.inflight.Begin(v.sessionID, id)
	err := v.backend.UpdateTaskStatus(ctx, id, current.Next())
	end()
	if err != nil {
		v.fail(err, msgUpdateFailed)
		return false
	}
	v.Refresh(ctx)
	return true
}

func (v *View) Delete(ctx context.Context, id string) bool {
	end := v.inflight.Begin(v.sessionID, id)
	err := v.backend.DeleteTask(ctx, id)
	end()
	if err != nil {
		v.fail(err, msgDeleteFailed)
		return false
	}
	v.Refresh(ctx)
	return true
}

func (v *View) fail(err error, fallback string) {
	v.Err = api.Message(err, fallback)
	v.Failure = err
}

// NetworkFailure reports whether the last failure never reached the API.
func (v *View) NetworkFailure() bool {
	var apiErr *api.APIError
	return v.Failure != nil && !errors.As(v.Failure, &apiErr)
}

// Page builds the template data for the current state.
func (v *View) Page(u api.User) web.DashboardPage {
	return web.DashboardPage{
		User:    u,
		Columns: web.BuildColumns(tasks.GroupByStatus(v.Tasks), v.inflight.Updating(v.sessionID)),
		Error:   v.Err,
		NewTask: v.Draft,
	}
}
