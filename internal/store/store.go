// Package store defines persistence for users, projects, tasks, comments and
// activity. Implementations live in sqlstore and mongostore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/model"
)

var (
	// ErrNotFound is returned when a looked up record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique key
	ErrDuplicate = errors.New("duplicate")
)

// UserFilter narrows a user listing
type UserFilter struct {
	Text  string // case-insensitive substring of name or email
	Limit int
}

// UserUpdate holds profile changes. Nil fields are left alone.
type UserUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

// ProjectFilter narrows a listing of the projects a user can access
type ProjectFilter struct {
	Status model.ProjectStatus
	Text   string // case-insensitive substring of name or description
	Limit  int
}

// ProjectUpdate holds project changes. Nil fields are left alone.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
	MemberIDs   *[]string
	Color       *string
	Icon        *string
}

// TaskUpdate holds task changes. Nil pointers and unset optionals are left alone;
// a set optional with a nil value clears the field.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.Priority
	ProjectID   model.Optional[string]
	AssignedTo  model.Optional[string]
	DueDate     model.Optional[time.Time]
	Labels      *[]string
	Tags        *[]string
	Subtasks    *[]model.Subtask
	Order       *int
}

// ActivityFilter selects activity entries. With ProjectID set only that
// project's entries are returned; otherwise entries on ProjectIDs or by
// UserID are returned. Results are newest first.
type ActivityFilter struct {
	ProjectID  string
	ProjectIDs []string
	UserID     string
	Limit      int
}

// CascadeResult reports what a project deletion removed
type CascadeResult struct {
	Tasks      int64 `json:"tasks"`
	Comments   int64 `json:"comments"`
	Activities int64 `json:"activities"`
}

// Store is the persistence boundary used by the services
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
	// Reset removes every record
	Reset(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*model.User, error)
	SetPassword(ctx context.Context, id, hash string) error
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, error)
	UserSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error)

	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	// ListProjects returns the projects userID owns or belongs to, newest first
	ListProjects(ctx context.Context, userID string, f ProjectFilter) ([]model.Project, error)
	AccessibleProjectIDs(ctx context.Context, userID string) ([]string, error)
	UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (*model.Project, error)
	ProjectRefs(ctx context.Context, ids []string) (map[string]model.ProjectRef, error)
	ProjectTaskCounts(ctx context.Context, ids []string) (map[string]model.TaskCounts, error)
	// DeleteProjectCascade removes the project with its tasks, their comments
	// and the project's activity in one transaction
	DeleteProjectCascade(ctx context.Context, id string) (CascadeResult, error)

	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// ListTasks returns tasks matching q, newest first
	ListTasks(ctx context.Context, q access.TaskQuery) ([]model.Task, error)
	CountTasks(ctx context.Context, q access.TaskQuery) (int64, error)
	UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*model.Task, error)
	// ToggleSubtask flips one subtask's completion in a single write
	ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*model.Task, error)
	// DeleteTask removes the task and its comments
	DeleteTask(ctx context.Context, id string) error

	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	// ListComments returns a task's comments, oldest first
	ListComments(ctx context.Context, taskID string) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	RecordActivity(ctx context.Context, a *model.ActivityLog) error
	ListActivity(ctx context.Context, f ActivityFilter) ([]model.ActivityLog, error)
}

// Timestamp normalizes t for storage: UTC, microsecond precision
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Now returns the current storage timestamp
func Now() time.Time {
	return Timestamp(time.Now())
}
