package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// SubtaskInput is one checklist entry in a task body. Entries whose id
// belongs to the task keep it; any other entry gets a fresh one.
type SubtaskInput struct {
	ID        string `json:"id"`
	Title     string `json:"title" validate:"required,max=200"`
	Completed bool   `json:"completed"`
}

// CreateTaskInput is the body of a task creation
type CreateTaskInput struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Status      model.TaskStatus `json:"status" validate:"omitempty,oneof=todo in-progress in-review completed"`
	Priority    model.Priority   `json:"priority" validate:"omitempty,oneof=urgent high medium low none"`
	Project     string           `json:"project"`
	AssignedTo  string           `json:"assignedTo"`
	DueDate     *Date            `json:"dueDate"`
	Labels      []string         `json:"labels" validate:"omitempty,max=20,dive,max=50"`
	Tags        []string         `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Subtasks    []SubtaskInput   `json:"subtasks" validate:"omitempty,max=100,dive"`
	Order       int              `json:"order"`
}

// UpdateTaskInput changes a task. Absent fields are left alone; null clears
// project, assignee and due date.
type UpdateTaskInput struct {
	Title       *string                `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string                `json:"description" validate:"omitnil,max=2000"`
	Status      *model.TaskStatus      `json:"status" validate:"omitnil,oneof=todo in-progress in-review completed"`
	Priority    *model.Priority        `json:"priority" validate:"omitnil,oneof=urgent high medium low none"`
	Project     model.Optional[string] `json:"project"`
	AssignedTo  model.Optional[string] `json:"assignedTo"`
	DueDate     model.Optional[Date]   `json:"dueDate"`
	Labels      *[]string              `json:"labels" validate:"omitnil,max=20,dive,max=50"`
	Tags        *[]string              `json:"tags" validate:"omitnil,max=20,dive,max=50"`
	Subtasks    *[]SubtaskInput        `json:"subtasks" validate:"omitnil,max=100,dive"`
	Order       *int                   `json:"order"`
}

// TaskListInput filters a task listing. Labels is comma separated, any-of.
type TaskListInput struct {
	Project    string           `query:"project"`
	Status     model.TaskStatus `query:"status" json:"status" validate:"omitempty,oneof=todo in-progress in-review completed"`
	Priority   model.Priority   `query:"priority" json:"priority" validate:"omitempty,oneof=urgent high medium low none"`
	AssignedTo string           `query:"assignedTo"`
	Labels     string           `query:"labels"`
	Search     string           `query:"search"`
}

// TaskService manages tasks
type TaskService struct {
	store    store.Store
	activity *ActivityService
}

// NewTaskService creates a new task service
func NewTaskService(st store.Store, activity *ActivityService) *TaskService {
	return &TaskService{store: st, activity: activity}
}

// List returns the caller's visible tasks matching in, newest first
func (s *TaskService) List(ctx context.Context, me auth.Identity, in TaskListInput) ([]TaskView, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	sc, err := scope(ctx, s.store, me.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, access.TaskQuery{
		Scope: sc,
		Filter: access.TaskFilter{
			ProjectID:  in.Project,
			Status:     in.Status,
			Priority:   in.Priority,
			AssignedTo: in.AssignedTo,
			Labels:     access.ParseLabels(in.Labels),
			Text:       strings.TrimSpace(in.Search),
		},
	})
	if err != nil {
		return nil, err
	}
	return taskViews(ctx, s.store, tasks)
}

// load returns the task and its project, nil when it has none or the
// project is gone
func (s *TaskService) load(ctx context.Context, id string) (*model.Task, *model.Project, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "Task not found")
	}
	if t.ProjectID == "" {
		return t, nil, nil
	}
	p, err := s.store.GetProject(ctx, t.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		return t, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// visible loads a task the caller may read
func (s *TaskService) visible(ctx context.Context, me auth.Identity, id string) (*model.Task, error) {
	t, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanReadTask(t, p, me.ID) {
		return nil, apperr.Denied("You do not have access to this task")
	}
	return t, nil
}

// Get returns one visible task
func (s *TaskService) Get(ctx context.Context, me auth.Identity, id string) (*TaskView, error) {
	t, err := s.visible(ctx, me, id)
	if err != nil {
		return nil, err
	}
	return taskView(ctx, s.store, t)
}

// requireProject checks the caller can file tasks into projectID
func (s *TaskService) requireProject(ctx context.Context, me auth.Identity, projectID string) error {
	const msg = "You do not have access to this project"
	p, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(err, apperr.Forbidden, msg)
	}
	if err != nil {
		return err
	}
	if !access.CanAccessProject(p, me.ID) {
		return apperr.Denied(msg)
	}
	return nil
}

func (s *TaskService) requireUser(ctx context.Context, field, id string) error {
	_, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Invalid("Validation error", apperr.FieldError{Field: field, Message: "User not found"})
	}
	return err
}

// subtasks builds the checklist of a task body. Ids repeated within the
// body are rejected; ids not found on current are dropped so the store
// assigns new ones.
func subtasks(in []SubtaskInput, current *model.Task) ([]model.Subtask, error) {
	out := make([]model.Subtask, len(in))
	seen := make(map[string]bool, len(in))
	var fields []apperr.FieldError
	for i, st := range in {
		id := strings.TrimSpace(st.ID)
		if id != "" {
			if seen[id] {
				fields = append(fields, apperr.FieldError{
					Field:   fmt.Sprintf("subtasks[%d].id", i),
					Message: "Duplicate subtask id",
				})
			}
			seen[id] = true
			if current == nil {
				id = ""
			} else if _, ok := current.Subtask(id); !ok {
				id = ""
			}
		}
		out[i] = model.Subtask{ID: id, Title: strings.TrimSpace(st.Title), Completed: st.Completed}
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("Validation error", fields...)
	}
	return out, nil
}

// duplicate maps a uniqueness conflict from the store to a validation error
func duplicate(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Wrap(err, apperr.Validation, "Subtask ids must be unique")
	}
	return err
}

func cleanList(in []string) []string {
	var set idSet
	for _, v := range in {
		set.add(strings.TrimSpace(v))
	}
	if set.ids == nil {
		return []string{}
	}
	return set.ids
}

// Create files a new task by the caller
func (s *TaskService) Create(ctx context.Context, me auth.Identity, in CreateTaskInput) (*TaskView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Project = strings.TrimSpace(in.Project)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	if err := check(in); err != nil {
		return nil, err
	}
	if in.Project != "" {
		if err := s.requireProject(ctx, me, in.Project); err != nil {
			return nil, err
		}
	}
	if in.AssignedTo != "" {
		if err := s.requireUser(ctx, "assignedTo", in.AssignedTo); err != nil {
			return nil, err
		}
	}

	t := model.NewTask("", in.Title, me.ID)
	t.Description = in.Description
	t.ProjectID = in.Project
	t.AssignedTo = in.AssignedTo
	t.Labels = cleanList(in.Labels)
	t.Tags = cleanList(in.Tags)
	list, err := subtasks(in.Subtasks, nil)
	if err != nil {
		return nil, err
	}
	t.Subtasks = list
	t.Order = in.Order
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	if in.DueDate != nil && !in.DueDate.IsZero() {
		due := in.DueDate.Time
		t.DueDate = &due
	}

	if err := s.store.CreateTask(ctx, &t); err != nil {
		return nil, duplicate(err)
	}
	if err := s.activity.record(ctx, me, model.ActionCreated, model.EntityTask, t.ID, t.Title, t.ProjectID, ""); err != nil {
		return nil, err
	}
	return taskView(ctx, s.store, &t)
}

// changeDetails summarizes status and priority changes for the activity log
func changeDetails(t *model.Task, in UpdateTaskInput) string {
	var changes []string
	if in.Status != nil && *in.Status != t.Status {
		changes = append(changes, "status → "+string(*in.Status))
	}
	if in.Priority != nil && *in.Priority != t.Priority {
		changes = append(changes, "priority → "+string(*in.Priority))
	}
	return strings.Join(changes, ", ")
}

// Update changes a task. Any status may move to any other.
func (s *TaskService) Update(ctx context.Context, me auth.Identity, id string, in UpdateTaskInput) (*TaskView, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if err := check(in); err != nil {
		return nil, err
	}

	t, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutateTask(t, p, me.ID) {
		return nil, apperr.Denied("You do not have permission to update this task")
	}

	upd := store.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Order:       in.Order,
	}
	if v := in.Project; v.Set {
		if v.Value != nil && strings.TrimSpace(*v.Value) != "" {
			projectID := strings.TrimSpace(*v.Value)
			if projectID != t.ProjectID {
				if err := s.requireProject(ctx, me, projectID); err != nil {
					return nil, err
				}
			}
			upd.ProjectID = model.Some(projectID)
		} else {
			upd.ProjectID = model.Null[string]()
		}
	}
	if v := in.AssignedTo; v.Set {
		if v.Value != nil && strings.TrimSpace(*v.Value) != "" {
			assignee := strings.TrimSpace(*v.Value)
			if err := s.requireUser(ctx, "assignedTo", assignee); err != nil {
				return nil, err
			}
			upd.AssignedTo = model.Some(assignee)
		} else {
			upd.AssignedTo = model.Null[string]()
		}
	}
	if v := in.DueDate; v.Set {
		if v.Value != nil && !v.Value.IsZero() {
			upd.DueDate = model.Some(v.Value.Time)
		} else {
			upd.DueDate = model.Null[time.Time]()
		}
	}
	if in.Labels != nil {
		labels := cleanList(*in.Labels)
		upd.Labels = &labels
	}
	if in.Tags != nil {
		tags := cleanList(*in.Tags)
		upd.Tags = &tags
	}
	if in.Subtasks != nil {
		list, err := subtasks(*in.Subtasks, t)
		if err != nil {
			return nil, err
		}
		upd.Subtasks = &list
	}

	updated, err := s.store.UpdateTask(ctx, id, upd)
	if err != nil {
		return nil, duplicate(notFound(err, "Task not found"))
	}
	details := changeDetails(t, in)
	if err := s.activity.record(ctx, me, model.ActionUpdated, model.EntityTask, t.ID, t.Title, updated.ProjectID, details); err != nil {
		return nil, err
	}
	return taskView(ctx, s.store, updated)
}

// ToggleSubtask flips the completion of one subtask
func (s *TaskService) ToggleSubtask(ctx context.Context, me auth.Identity, taskID, subtaskID string) (*TaskView, error) {
	t, p, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanMutateTask(t, p, me.ID) {
		return nil, apperr.Denied("You do not have permission to update this task")
	}
	st, ok := t.Subtask(subtaskID)
	if !ok {
		return nil, apperr.Missing("Subtask not found")
	}

	updated, err := s.store.ToggleSubtask(ctx, taskID, subtaskID)
	if err != nil {
		return nil, notFound(err, "Subtask not found")
	}
	state := "completed"
	if st.Completed {
		state = "reopened"
	}
	details := fmt.Sprintf("subtask %q %s", st.Title, state)
	if err := s.activity.record(ctx, me, model.ActionUpdated, model.EntityTask, t.ID, t.Title, t.ProjectID, details); err != nil {
		return nil, err
	}
	return taskView(ctx, s.store, updated)
}

// Delete removes a task and its comments. Project owners and members, and
// the task's creator, may delete.
func (s *TaskService) Delete(ctx context.Context, me auth.Identity, id string) error {
	t, p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanDeleteTask(t, p, me.ID) {
		return apperr.Denied("You do not have permission to delete this task")
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return notFound(err, "Task not found")
	}
	return s.activity.record(ctx, me, model.ActionDeleted, model.EntityTask, t.ID, t.Title, t.ProjectID, "")
}
