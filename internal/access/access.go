// Package access holds the authorization rules that decide which projects,
// tasks and comments a user may see or change.
//
// The rules are expressed as plain predicates over model values. Stores
// translate TaskQuery into their own query language; the predicates here are
// the reference those translations are tested against.
package access

import (
	"slices"
	"strings"

	"github.com/existflow/taskboard/internal/model"
)

// CanAccessProject reports whether userID may read or update p: owner or member.
func CanAccessProject(p *model.Project, userID string) bool {
	if p == nil || userID == "" {
		return false
	}
	return p.OwnerID == userID || p.HasMember(userID)
}

// CanDeleteProject reports whether userID may delete p. Membership is not enough.
func CanDeleteProject(p *model.Project, userID string) bool {
	return p != nil && userID != "" && p.OwnerID == userID
}

// CanMutateTask reports whether userID may update t. project is the task's
// project, or nil when the task has none or the project no longer exists.
//
// Tasks without a project are open to every authenticated user.
func CanMutateTask(t *model.Task, project *model.Project, userID string) bool {
	if t == nil || userID == "" {
		return false
	}
	if t.ProjectID == "" {
		return true
	}
	return CanAccessProject(project, userID)
}

// CanDeleteTask is CanMutateTask widened to the task's creator.
func CanDeleteTask(t *model.Task, project *model.Project, userID string) bool {
	if CanMutateTask(t, project, userID) {
		return true
	}
	return t != nil && userID != "" && t.CreatedBy == userID
}

// CanReadTask reports whether t is visible to userID given the task's project.
// It is the single-task form of TaskScope.Allows.
func CanReadTask(t *model.Task, project *model.Project, userID string) bool {
	if t == nil || userID == "" {
		return false
	}
	if t.ProjectID == "" || t.CreatedBy == userID || t.AssignedTo == userID {
		return true
	}
	return CanAccessProject(project, userID)
}

// CanDeleteComment reports whether userID wrote c.
func CanDeleteComment(c *model.Comment, userID string) bool {
	return c != nil && userID != "" && c.AuthorID == userID
}

// TaskScope is the visibility set of one user: tasks in ProjectIDs, created
// by or assigned to UserID, or without a project.
type TaskScope struct {
	UserID     string
	ProjectIDs []string
}

// NewTaskScope builds the scope of userID from the ids of the projects the
// user owns or belongs to.
func NewTaskScope(userID string, projectIDs []string) *TaskScope {
	return &TaskScope{UserID: userID, ProjectIDs: projectIDs}
}

// Allows reports whether t falls inside the scope.
func (s *TaskScope) Allows(t *model.Task) bool {
	switch {
	case t.ProjectID == "":
		return true
	case t.CreatedBy == s.UserID:
		return true
	case t.AssignedTo == s.UserID:
		return true
	default:
		return slices.Contains(s.ProjectIDs, t.ProjectID)
	}
}

// HasProject reports whether projectID is one of the user's projects.
func (s *TaskScope) HasProject(projectID string) bool {
	return slices.Contains(s.ProjectIDs, projectID)
}

// TaskFilter narrows a task listing. Zero fields do not filter.
type TaskFilter struct {
	ProjectID  string
	Status     model.TaskStatus
	Priority   model.Priority
	AssignedTo string
	Involving  string   // created by or assigned to this user
	Labels     []string // any-of
	Text       string   // case-insensitive substring of title or description
}

// Matches reports whether t satisfies every non-zero field of f.
func (f TaskFilter) Matches(t *model.Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Involving != "" && t.CreatedBy != f.Involving && t.AssignedTo != f.Involving {
		return false
	}
	if len(f.Labels) > 0 && !t.HasAnyLabel(f.Labels) {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// TaskQuery is a scope intersected with explicit filters. A nil Scope means
// no visibility restriction and is only used for internal statistics.
type TaskQuery struct {
	Scope  *TaskScope
	Filter TaskFilter
	Limit  int
}

// Matches reports whether t is returned by q, ignoring Limit.
func (q TaskQuery) Matches(t *model.Task) bool {
	if q.Scope != nil && !q.Scope.Allows(t) {
		return false
	}
	return q.Filter.Matches(t)
}

// ParseLabels splits a comma separated label list, dropping blanks.
func ParseLabels(raw string) []string {
	if raw == "" {
		return nil
	}
	var labels []string
	for _, l := range strings.Split(raw, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
