package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// owner A, member B, outsider C
func TestTaskScenario_MemberTaskInProject(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.user("a"), f.user("b"), f.user("c")
	p := f.project(a, b)

	t1 := f.task(b, p.ID, "T1")
	require.NotNil(t, t1.Project)
	assert.Equal(t, p.Name, t1.Project.Name)
	require.NotNil(t, t1.Creator)
	assert.Equal(t, b.ID, t1.Creator.ID)

	_, err := f.svc.Tasks.Get(f.ctx, c, t1.ID)
	requireKind(t, err, apperr.Forbidden, "You do not have access to this task")

	_, err = f.svc.Tasks.Update(f.ctx, c, t1.ID, UpdateTaskInput{Title: ptr("hijack")})
	requireKind(t, err, apperr.Forbidden, "You do not have permission to update this task")

	err = f.svc.Tasks.Delete(f.ctx, c, t1.ID)
	requireKind(t, err, apperr.Forbidden, "You do not have permission to delete this task")

	updated, err := f.svc.Tasks.Update(f.ctx, a, t1.ID, UpdateTaskInput{Title: ptr("T1 renamed")})
	require.NoError(t, err)
	assert.Equal(t, "T1 renamed", updated.Title)

	require.NoError(t, f.svc.Tasks.Delete(f.ctx, a, t1.ID))
	_, err = f.svc.Tasks.Get(f.ctx, a, t1.ID)
	requireKind(t, err, apperr.NotFound, "Task not found")
}

func TestTaskScenario_NoProjectIsOpen(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")

	t2 := f.task(a, "", "personal")
	assert.Nil(t, t2.Project)

	_, err := f.svc.Tasks.Get(f.ctx, c, t2.ID)
	require.NoError(t, err)

	list, err := f.svc.Tasks.List(f.ctx, c, TaskListInput{})
	require.NoError(t, err)
	assert.Contains(t, taskIDs(list), t2.ID)

	_, err = f.svc.Tasks.Update(f.ctx, c, t2.ID, UpdateTaskInput{Priority: ptr(model.PriorityLow)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Tasks.Delete(f.ctx, c, t2.ID))
}

func TestTaskVisibility_Union(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.user("a"), f.user("b"), f.user("c")
	private := f.project(a)

	hidden := f.task(a, private.ID, "hidden")
	assigned, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "assigned", Project: private.ID, AssignedTo: c.ID})
	require.NoError(t, err)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, c.ID, assigned.Assignee.ID)

	list, err := f.svc.Tasks.List(f.ctx, c, TaskListInput{})
	require.NoError(t, err)
	got := taskIDs(list)
	assert.Contains(t, got, assigned.ID)
	assert.NotContains(t, got, hidden.ID)

	// assignment grants read but not update
	_, err = f.svc.Tasks.Get(f.ctx, c, assigned.ID)
	require.NoError(t, err)
	_, err = f.svc.Tasks.Update(f.ctx, c, assigned.ID, UpdateTaskInput{Title: ptr("x")})
	requireKind(t, err, apperr.Forbidden, "")

	list, err = f.svc.Tasks.List(f.ctx, b, TaskListInput{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTaskDelete_CreatorOutsideProject(t *testing.T) {
	f := newFixture(t)
	a, b := f.user("a"), f.user("b")
	p := f.project(a, b)
	task := f.task(b, p.ID, "mine")

	// b leaves the project but still created the task
	_, err := f.svc.Projects.Update(f.ctx, a, p.ID, UpdateProjectInput{Members: &[]string{}})
	require.NoError(t, err)

	_, err = f.svc.Tasks.Update(f.ctx, b, task.ID, UpdateTaskInput{Title: ptr("x")})
	requireKind(t, err, apperr.Forbidden, "")
	require.NoError(t, f.svc.Tasks.Delete(f.ctx, b, task.ID))
}

func TestTaskCreate_Checks(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")
	p := f.project(a)

	_, err := f.svc.Tasks.Create(f.ctx, c, CreateTaskInput{Title: "x", Project: p.ID})
	requireKind(t, err, apperr.Forbidden, "You do not have access to this project")

	_, err = f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "x", Project: "missing"})
	requireKind(t, err, apperr.Forbidden, "You do not have access to this project")

	_, err = f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "x", AssignedTo: "ghost"})
	requireKind(t, err, apperr.Validation, "")

	_, err = f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "  "})
	requireKind(t, err, apperr.Validation, "Validation error")

	_, err = f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "x", Priority: "critical"})
	requireKind(t, err, apperr.Validation, "")
}

func TestTaskCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")
	due := Date{time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}

	task, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{
		Title:    "Write docs",
		DueDate:  &due,
		Labels:   []string{"docs", " docs ", ""},
		Subtasks: []SubtaskInput{{Title: "outline"}, {Title: "draft"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, []string{"docs"}, task.Labels)
	require.Len(t, task.Subtasks, 2)
	assert.NotEmpty(t, task.Subtasks[0].ID)
	require.NotNil(t, task.DueDate)
	assert.True(t, due.Equal(*task.DueDate))
}

func TestTaskUpdate_ClearAndDetails(t *testing.T) {
	f := newFixture(t)
	a, b := f.user("a"), f.user("b")
	p := f.project(a, b)

	due := Date{time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	task, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "x", Project: p.ID, AssignedTo: b.ID, DueDate: &due})
	require.NoError(t, err)

	updated, err := f.svc.Tasks.Update(f.ctx, a, task.ID, UpdateTaskInput{
		Status:     ptr(model.StatusInReview),
		Priority:   ptr(model.PriorityMedium),
		AssignedTo: model.Null[string](),
		DueDate:    model.Null[Date](),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInReview, updated.Status)
	assert.Empty(t, updated.AssignedTo)
	assert.Nil(t, updated.Assignee)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, p.ID, updated.ProjectID)

	entries, err := f.store.ListActivity(f.ctx, store.ActivityFilter{ProjectID: p.ID, Limit: 10})
	require.NoError(t, err)
	var details []string
	for _, e := range entries {
		if e.EntityID == task.ID && e.Action == model.ActionUpdated {
			details = append(details, e.Details)
		}
	}
	assert.Equal(t, []string{"status → in-review"}, details)
}

func TestTaskUpdate_MoveProject(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")
	mine, theirs := f.project(a), f.project(c)
	task := f.task(a, mine.ID, "x")

	_, err := f.svc.Tasks.Update(f.ctx, a, task.ID, UpdateTaskInput{Project: model.Some(theirs.ID)})
	requireKind(t, err, apperr.Forbidden, "You do not have access to this project")

	updated, err := f.svc.Tasks.Update(f.ctx, a, task.ID, UpdateTaskInput{Project: model.Null[string]()})
	require.NoError(t, err)
	assert.Empty(t, updated.ProjectID)
	assert.Nil(t, updated.Project)
}

func TestTaskToggleSubtask(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")
	p := f.project(a)
	task, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{
		Title:    "x",
		Project:  p.ID,
		Subtasks: []SubtaskInput{{Title: "one"}, {Title: "two", Completed: true}, {Title: "three"}},
	})
	require.NoError(t, err)
	target := task.Subtasks[0].ID

	toggled, err := f.svc.Tasks.ToggleSubtask(f.ctx, a, task.ID, target)
	require.NoError(t, err)
	require.Len(t, toggled.Subtasks, 3)
	assert.True(t, toggled.Subtasks[0].Completed)
	assert.True(t, toggled.Subtasks[1].Completed)
	assert.False(t, toggled.Subtasks[2].Completed)

	toggled, err = f.svc.Tasks.ToggleSubtask(f.ctx, a, task.ID, target)
	require.NoError(t, err)
	assert.False(t, toggled.Subtasks[0].Completed)

	_, err = f.svc.Tasks.ToggleSubtask(f.ctx, a, task.ID, "missing")
	requireKind(t, err, apperr.NotFound, "Subtask not found")

	_, err = f.svc.Tasks.ToggleSubtask(f.ctx, c, task.ID, target)
	requireKind(t, err, apperr.Forbidden, "")
}

func TestTaskList_Filters(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")
	p := f.project(a)

	bug, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "Fix login", Project: p.ID, Labels: []string{"bug"}, Priority: model.PriorityHigh})
	require.NoError(t, err)
	_, err = f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{Title: "Write docs", Project: p.ID, Labels: []string{"docs"}})
	require.NoError(t, err)

	list, err := f.svc.Tasks.List(f.ctx, a, TaskListInput{Labels: "bug,feature"})
	require.NoError(t, err)
	assert.Equal(t, []string{bug.ID}, taskIDs(list))

	list, err = f.svc.Tasks.List(f.ctx, a, TaskListInput{Priority: model.PriorityHigh, Project: p.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{bug.ID}, taskIDs(list))

	list, err = f.svc.Tasks.List(f.ctx, a, TaskListInput{Search: "LOGIN"})
	require.NoError(t, err)
	assert.Equal(t, []string{bug.ID}, taskIDs(list))

	_, err = f.svc.Tasks.List(f.ctx, a, TaskListInput{Status: "blocked"})
	requireKind(t, err, apperr.Validation, "")
}

func TestTaskUpdate_BlankLabelsDropped(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")
	task := f.task(a, "", "x")

	updated, err := f.svc.Tasks.Update(f.ctx, a, task.ID, UpdateTaskInput{
		Labels: &[]string{"", "bug", " bug"},
		Tags:   &[]string{" "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bug"}, updated.Labels)
	assert.Empty(t, updated.Tags)
}

func TestTaskSubtasks_RepeatedIDRejected(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")

	_, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{
		Title:    "x",
		Subtasks: []SubtaskInput{{ID: "same", Title: "one"}, {ID: "same", Title: "two"}},
	})
	requireKind(t, err, apperr.Validation, "Validation error")
	e, _ := apperr.As(err)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "subtasks[1].id", e.Fields[0].Field)

	task := f.task(a, "", "y")
	_, err = f.svc.Tasks.Update(f.ctx, a, task.ID, UpdateTaskInput{
		Subtasks: &[]SubtaskInput{{ID: "k", Title: "one"}, {ID: "k", Title: "two"}},
	})
	requireKind(t, err, apperr.Validation, "Validation error")
}

func TestTaskSubtasks_ForeignIDsReplaced(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")

	theirs, err := f.svc.Tasks.Create(f.ctx, a, CreateTaskInput{
		Title:    "a's task",
		Subtasks: []SubtaskInput{{Title: "one"}},
	})
	require.NoError(t, err)
	foreign := theirs.Subtasks[0].ID

	mine, err := f.svc.Tasks.Create(f.ctx, c, CreateTaskInput{
		Title:    "c's task",
		Subtasks: []SubtaskInput{{ID: foreign, Title: "copied"}},
	})
	require.NoError(t, err)
	require.Len(t, mine.Subtasks, 1)
	assert.NotEqual(t, foreign, mine.Subtasks[0].ID)

	// ids already on the task are kept, others are reassigned
	kept := mine.Subtasks[0].ID
	updated, err := f.svc.Tasks.Update(f.ctx, c, mine.ID, UpdateTaskInput{
		Subtasks: &[]SubtaskInput{
			{ID: kept, Title: "copied", Completed: true},
			{ID: foreign, Title: "again"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Subtasks, 2)
	assert.Equal(t, kept, updated.Subtasks[0].ID)
	assert.True(t, updated.Subtasks[0].Completed)
	assert.NotEqual(t, foreign, updated.Subtasks[1].ID)

	original, err := f.svc.Tasks.Get(f.ctx, a, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, foreign, original.Subtasks[0].ID)
}
