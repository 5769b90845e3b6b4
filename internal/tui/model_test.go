package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/client"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

type fakeAPI struct {
	mu       sync.Mutex
	projects []service.ProjectView
	tasks    []service.TaskView
	filters  []client.TaskFilter
	created  []service.CreateTaskInput
	updates  map[string]map[string]interface{}
	deleted  []string
}

func (f *fakeAPI) Settings() client.Settings {
	return client.Settings{ServerURL: "http://localhost:3000", UserName: "Ada"}
}

func (f *fakeAPI) Projects(context.Context, model.ProjectStatus) ([]service.ProjectView, error) {
	return f.projects, nil
}

func (f *fakeAPI) Tasks(_ context.Context, filter client.TaskFilter) ([]service.TaskView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.tasks, nil
}

func (f *fakeAPI) CreateProject(_ context.Context, in service.CreateProjectInput) (*service.ProjectView, error) {
	return &service.ProjectView{Project: model.Project{ID: "new", Name: in.Name}}, nil
}

func (f *fakeAPI) CreateTask(_ context.Context, in service.CreateTaskInput) (*service.TaskView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &service.TaskView{Task: model.Task{ID: "t-new", Title: in.Title}}, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, changes map[string]interface{}) (*service.TaskView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]map[string]interface{})
	}
	f.updates[id] = changes
	return &service.TaskView{Task: model.Task{ID: id}}, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) Logout() error { return nil }

func task(id, title string, status model.TaskStatus, p model.Priority) service.TaskView {
	return service.TaskView{Task: model.Task{
		ID: id, Title: title, Status: status, Priority: p, CreatedAt: time.Now(),
	}}
}

func newBoard(t *testing.T) (Model, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{
		projects: []service.ProjectView{{Project: model.Project{ID: "p1", Name: "Launch"}}},
		tasks: []service.TaskView{
			task("t1", "Write copy", model.StatusTodo, model.PriorityLow),
			task("t2", "Fix login", model.StatusTodo, model.PriorityUrgent),
			task("t3", "Review PR", model.StatusInReview, model.PriorityMedium),
		},
	}
	m := NewModel(api)
	next, _ := m.Update(m.Init()())
	m = next.(Model)
	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), api
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// settle runs cmd and feeds the result back until no command remains
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 5; i++ {
		msg := cmd()
		if msg == nil {
			break
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestBoard_ColumnsSortByPriority(t *testing.T) {
	m, _ := newBoard(t)
	todo := m.columnTasks(0)
	require.Len(t, todo, 2)
	assert.Equal(t, "t2", todo[0].ID)
	assert.Len(t, m.columnTasks(2), 1)
	assert.Empty(t, m.columnTasks(3))
	assert.Equal(t, "t2", m.currentTask().ID)
}

func TestBoard_ToggleDone(t *testing.T) {
	m, api := newBoard(t)
	m, cmd := press(t, m, "j", "x")
	require.NotNil(t, cmd)
	settle(t, m, cmd)
	assert.Equal(t, model.StatusCompleted, api.updates["t1"]["status"])
}

func TestBoard_MoveTaskRight(t *testing.T) {
	m, api := newBoard(t)
	m, _ = press(t, m, "l", "l")
	assert.Equal(t, "t3", m.currentTask().ID)

	m, cmd := press(t, m, "L")
	settle(t, m, cmd)
	assert.Equal(t, model.StatusCompleted, api.updates["t3"]["status"])
}

func TestBoard_MoveStopsAtEdges(t *testing.T) {
	m, _ := newBoard(t)
	_, cmd := press(t, m, "H")
	assert.Nil(t, cmd)
}

func TestBoard_SetPriority(t *testing.T) {
	m, api := newBoard(t)
	m, cmd := press(t, m, "2")
	settle(t, m, cmd)
	assert.Equal(t, model.PriorityHigh, api.updates["t2"]["priority"])
}

func TestBoard_AddTaskUsesColumnAndProject(t *testing.T) {
	m, api := newBoard(t)

	// open the project from the sidebar, then add to In Progress
	m, cmd := press(t, m, "tab", "j", "enter")
	m = settle(t, m, cmd)
	require.NotNil(t, m.currentProject())
	assert.Equal(t, "p1", api.filters[len(api.filters)-1].Project)

	m, _ = press(t, m, "l", "a")
	assert.Equal(t, ModeAddTask, m.mode)
	m, _ = press(t, m, "S", "h", "i", "p")
	m, cmd = press(t, m, "enter")
	settle(t, m, cmd)

	require.Len(t, api.created, 1)
	assert.Equal(t, "Ship", api.created[0].Title)
	assert.Equal(t, "p1", api.created[0].Project)
	assert.Equal(t, model.StatusInProgress, api.created[0].Status)
}

func TestBoard_DeleteNeedsConfirmation(t *testing.T) {
	m, api := newBoard(t)

	m, cmd := press(t, m, "d", "n")
	assert.Nil(t, cmd)
	assert.Equal(t, ModeNormal, m.mode)

	m, cmd = press(t, m, "d", "y")
	settle(t, m, cmd)
	assert.Equal(t, []string{"t2"}, api.deleted)
}

func TestBoard_Filter(t *testing.T) {
	m, _ := newBoard(t)
	m, _ = press(t, m, "/", "c", "o", "p", "y", "enter")
	assert.Equal(t, "copy", m.filterText)
	todo := m.columnTasks(0)
	require.Len(t, todo, 1)
	assert.Equal(t, "t1", todo[0].ID)

	m, _ = press(t, m, "/", "esc")
	assert.Empty(t, m.filterText)
	assert.Len(t, m.columnTasks(0), 2)
}

func TestBoard_ViewRenders(t *testing.T) {
	m, _ := newBoard(t)
	out := m.View()
	assert.Contains(t, out, "To Do (2)")
	assert.Contains(t, out, "Fix login")
	assert.Contains(t, out, "Launch")
}
