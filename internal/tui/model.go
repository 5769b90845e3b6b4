package tui

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/taskboard/internal/client"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

// API is the part of the taskboard client the board uses
type API interface {
	Settings() client.Settings
	Projects(ctx context.Context, status model.ProjectStatus) ([]service.ProjectView, error)
	Tasks(ctx context.Context, f client.TaskFilter) ([]service.TaskView, error)
	CreateProject(ctx context.Context, in service.CreateProjectInput) (*service.ProjectView, error)
	CreateTask(ctx context.Context, in service.CreateTaskInput) (*service.TaskView, error)
	UpdateTask(ctx context.Context, id string, changes map[string]interface{}) (*service.TaskView, error)
	DeleteTask(ctx context.Context, id string) error
	Logout() error
}

// Pane represents which pane is focused
type Pane int

const (
	PaneSidebar Pane = iota
	PaneBoard
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeAddProject
	ModeEditTask
	ModeFilter
	ModeConfirmDelete
	ModeHelp
)

const requestTimeout = 15 * time.Second

// Model is the main TUI model. Sidebar entry 0 is "All tasks"; entry i > 0
// is projects[i-1].
type Model struct {
	api      API
	projects []service.ProjectView
	tasks    []service.TaskView // tasks of the selected sidebar entry

	// UI state
	width      int
	height     int
	pane       Pane
	mode       Mode
	projCursor int
	column     int // index into model.TaskStatuses
	rows       [4]int

	input      textinput.Model
	filterText string
	loading    bool
	quitting   bool

	message string
	isError bool
}

// NewModel creates a board over api
func NewModel(api API) Model {
	logger.Info("Initializing TUI model")

	ti := textinput.New()
	ti.Placeholder = "Enter task..."
	ti.CharLimit = 200
	ti.Width = 50

	return Model{
		api:     api,
		pane:    PaneBoard,
		mode:    ModeNormal,
		input:   ti,
		loading: true,
	}
}

func (m *Model) currentProject() *service.ProjectView {
	if m.projCursor > 0 && m.projCursor <= len(m.projects) {
		return &m.projects[m.projCursor-1]
	}
	return nil
}

func (m *Model) currentStatus() model.TaskStatus {
	return model.TaskStatuses[m.column]
}

// columnTasks returns the tasks in one board column after the filter,
// most pressing first
func (m *Model) columnTasks(col int) []service.TaskView {
	status := model.TaskStatuses[col]
	filter := strings.ToLower(m.filterText)

	var out []service.TaskView
	for _, t := range m.tasks {
		if t.Status != status {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(t.Title), filter) &&
			!strings.Contains(strings.ToLower(t.Description), filter) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func (m *Model) currentTask() *service.TaskView {
	col := m.columnTasks(m.column)
	row := m.rows[m.column]
	if row < len(col) {
		return &col[row]
	}
	return nil
}

// clampRows keeps every column cursor inside its column
func (m *Model) clampRows() {
	for c := range m.rows {
		n := len(m.columnTasks(c))
		if m.rows[c] >= n {
			m.rows[c] = max(n-1, 0)
		}
	}
}

func (m *Model) setMessage(msg string, isError bool) {
	m.message = msg
	m.isError = isError
}
