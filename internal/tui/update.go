package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/taskboard/internal/client"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

// loadedMsg carries a fresh copy of the board
type loadedMsg struct {
	projects []service.ProjectView
	tasks    []service.TaskView
	err      error
}

// doneMsg reports the outcome of a change; the board reloads afterwards
type doneMsg struct {
	message string
	err     error
}

// Init loads the board
func (m Model) Init() tea.Cmd {
	return m.load()
}

// load fetches projects and the tasks of the selected sidebar entry
func (m Model) load() tea.Cmd {
	api := m.api
	projectID := ""
	if p := m.currentProject(); p != nil {
		projectID = p.ID
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		projects, err := api.Projects(ctx, "")
		if err != nil {
			return loadedMsg{err: err}
		}
		tasks, err := api.Tasks(ctx, client.TaskFilter{Project: projectID})
		return loadedMsg{projects: projects, tasks: tasks, err: err}
	}
}

// run performs one change in the background
func (m Model) run(success string, fn func(ctx context.Context, api API) error) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return doneMsg{message: success, err: fn(ctx, api)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			logger.Warn("Failed to load board", logger.Err(msg.err))
			m.setMessage("Load failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.projects = msg.projects
		m.tasks = msg.tasks
		if m.projCursor > len(m.projects) {
			m.projCursor = 0
		}
		m.clampRows()
		return m, nil

	case doneMsg:
		if msg.err != nil {
			logger.Warn("Board action failed", logger.Err(msg.err))
			m.setMessage(msg.err.Error(), true)
		} else {
			m.setMessage(msg.message, false)
		}
		m.loading = true
		return m, m.load()

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask, ModeAddProject, ModeEditTask:
			return m.updateInput(msg)
		case ModeFilter:
			return m.updateFilter(msg)
		case ModeConfirmDelete:
			return m.updateConfirm(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneSidebar {
			m.pane = PaneBoard
		} else {
			m.pane = PaneSidebar
		}

	case key.Matches(msg, keys.Up):
		m.handleUp()

	case key.Matches(msg, keys.Down):
		m.handleDown()

	case key.Matches(msg, keys.Left):
		if m.pane == PaneBoard && m.column > 0 {
			m.column--
		}

	case key.Matches(msg, keys.Right):
		if m.pane == PaneBoard && m.column < len(model.TaskStatuses)-1 {
			m.column++
		}

	case key.Matches(msg, keys.Enter):
		if m.pane == PaneSidebar {
			m.pane = PaneBoard
			m.rows = [4]int{}
			m.loading = true
			return m, m.load()
		}

	case key.Matches(msg, keys.Add):
		return m.startInput(ModeAddTask, "Enter task...", "")

	case key.Matches(msg, keys.Project):
		return m.startInput(ModeAddProject, "Project name...", "")

	case key.Matches(msg, keys.Edit):
		if t := m.currentTask(); t != nil {
			return m.startInput(ModeEditTask, "Task title...", t.Title)
		}

	case key.Matches(msg, keys.Done):
		return m, m.toggleDone()

	case key.Matches(msg, keys.MoveLeft):
		return m, m.shiftTask(-1)

	case key.Matches(msg, keys.MoveRight):
		return m, m.shiftTask(1)

	case key.Matches(msg, keys.Priority):
		return m, m.setPriority(msg.String())

	case key.Matches(msg, keys.Delete):
		if m.currentTask() != nil {
			m.mode = ModeConfirmDelete
		}

	case key.Matches(msg, keys.Filter):
		m.mode = ModeFilter
		m.input.SetValue(m.filterText)
		m.input.Placeholder = "Filter tasks..."
		m.input.Focus()
		return m, nil

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.setMessage("", false)
		return m, m.load()

	case key.Matches(msg, keys.Logout):
		if err := m.api.Logout(); err != nil {
			m.setMessage("Logout failed: "+err.Error(), true)
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
	}

	return m, nil
}

func (m *Model) handleUp() {
	if m.pane == PaneSidebar {
		if m.projCursor > 0 {
			m.projCursor--
		}
		return
	}
	if m.rows[m.column] > 0 {
		m.rows[m.column]--
	}
}

func (m *Model) handleDown() {
	if m.pane == PaneSidebar {
		if m.projCursor < len(m.projects) {
			m.projCursor++
		}
		return
	}
	if m.rows[m.column] < len(m.columnTasks(m.column))-1 {
		m.rows[m.column]++
	}
}

func (m Model) startInput(mode Mode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.Focus()
	return m, nil
}

// updateTask sends changes for the selected task
func (m Model) updateTask(success string, changes map[string]interface{}) tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	id := t.ID
	return m.run(success, func(ctx context.Context, api API) error {
		_, err := api.UpdateTask(ctx, id, changes)
		return err
	})
}

func (m Model) toggleDone() tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	status := model.StatusCompleted
	if t.Status == model.StatusCompleted {
		status = model.StatusTodo
	}
	return m.updateTask(fmt.Sprintf("%q → %s", truncate(t.Title, 30), status),
		map[string]interface{}{"status": status})
}

// shiftTask moves the selected task one column left or right
func (m Model) shiftTask(delta int) tea.Cmd {
	t := m.currentTask()
	next := m.column + delta
	if t == nil || next < 0 || next >= len(model.TaskStatuses) {
		return nil
	}
	status := model.TaskStatuses[next]
	return m.updateTask(fmt.Sprintf("%q → %s", truncate(t.Title, 30), status),
		map[string]interface{}{"status": status})
}

func (m Model) setPriority(k string) tea.Cmd {
	idx, ok := priorityKeys[k]
	if !ok {
		return nil
	}
	p := model.Priorities[idx]
	return m.updateTask("Priority set to "+string(p), map[string]interface{}{"priority": p})
}

// updateInput handles the text prompt used for adding and renaming
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		m.input.SetValue("")
		if value == "" {
			return m, nil
		}
		return m, m.submit(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(mode Mode, value string) tea.Cmd {
	switch mode {
	case ModeAddTask:
		in := service.CreateTaskInput{Title: value, Status: m.currentStatus()}
		if p := m.currentProject(); p != nil {
			in.Project = p.ID
		}
		return m.run("Added "+value, func(ctx context.Context, api API) error {
			_, err := api.CreateTask(ctx, in)
			return err
		})

	case ModeAddProject:
		return m.run("Created project "+value, func(ctx context.Context, api API) error {
			_, err := api.CreateProject(ctx, service.CreateProjectInput{Name: value})
			return err
		})

	case ModeEditTask:
		return m.updateTask("Renamed to "+value, map[string]interface{}{"title": value})
	}
	return nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.filterText = ""
		m.input.Blur()
		m.input.SetValue("")
		m.clampRows()
		return m, nil
	case tea.KeyEnter:
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filterText = m.input.Value()
	m.clampRows()
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	if msg.String() != "y" {
		return m, nil
	}
	t := m.currentTask()
	if t == nil {
		return m, nil
	}
	id, title := t.ID, t.Title
	return m, m.run("Deleted "+title, func(ctx context.Context, api API) error {
		return api.DeleteTask(ctx, id)
	})
}
