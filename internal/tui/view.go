package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

const sidebarWidth = 24

var columnTitles = map[model.TaskStatus]string{
	model.StatusTodo:       "To Do",
	model.StatusInProgress: "In Progress",
	model.StatusInReview:   "In Review",
	model.StatusCompleted:  "Completed",
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderBoard())

	switch m.mode {
	case ModeAddTask, ModeAddProject, ModeEditTask:
		board = m.place(m.renderModal())
	case ModeConfirmDelete:
		board = m.place(m.renderConfirm())
	case ModeHelp:
		board = m.place(m.renderHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), board, m.renderStatusBar())
}

func (m Model) place(modal string) string {
	return lipgloss.Place(m.width, max(m.height-4, 1), lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceChars(" "))
}

func (m Model) renderHeader() string {
	s := m.api.Settings()
	title := "Taskboard"
	if p := m.currentProject(); p != nil {
		title += " · " + p.Name
	} else {
		title += " · All tasks"
	}
	who := s.UserName
	if who == "" {
		who = s.Email
	}
	right := HelpStyle.Render(who + " @ " + s.ServerURL)
	left := HeaderStyle.Render(title)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Projects") + "\n\n")

	entries := []string{"All tasks"}
	for _, p := range m.projects {
		entries = append(entries, fmt.Sprintf("%s %d/%d", truncate(p.Name, sidebarWidth-10), p.Completed, p.Total))
	}

	for i, name := range entries {
		style := ProjectItemStyle
		prefix := "  "
		if i == m.projCursor {
			prefix = "❯ "
			if m.pane == PaneSidebar {
				style = ProjectItemSelectedStyle
			}
		}
		b.WriteString(style.Render(prefix+name) + "\n")
	}

	return SidebarStyle.Height(max(m.height-6, 1)).Render(b.String())
}

func (m Model) renderBoard() string {
	width := (m.width - sidebarWidth - 4) / len(model.TaskStatuses)
	if width < 16 {
		width = 16
	}

	cols := make([]string, len(model.TaskStatuses))
	for i, status := range model.TaskStatuses {
		cols[i] = m.renderColumn(i, status, width)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderColumn(col int, status model.TaskStatus, width int) string {
	tasks := m.columnTasks(col)
	focused := m.pane == PaneBoard && col == m.column

	var b strings.Builder
	title := fmt.Sprintf("%s (%d)", columnTitles[status], len(tasks))
	if focused {
		b.WriteString(ColumnTitleFocusedStyle.Render(title))
	} else {
		b.WriteString(ColumnTitleStyle.Render(title))
	}
	b.WriteString("\n\n")

	if len(tasks) == 0 {
		b.WriteString(HelpStyle.Render("  empty"))
	}
	for i, t := range tasks {
		b.WriteString(m.renderCard(t, focused && i == m.rows[col], width-2))
		b.WriteString("\n")
	}

	style := ColumnStyle
	if focused {
		style = ColumnFocusedStyle
	}
	return style.Width(width).Height(max(m.height-8, 1)).Render(b.String())
}

func (m Model) renderCard(t service.TaskView, selected bool, width int) string {
	title := truncate(t.Title, max(width-4, 4))
	style := TaskItemStyle
	switch {
	case selected:
		style = TaskItemSelectedStyle
	case t.Status == model.StatusCompleted:
		style = TaskDoneStyle
	}

	line := FormatPriority(t.Priority) + " " + title
	var meta []string
	if t.Assignee != nil {
		meta = append(meta, "@"+t.Assignee.Name)
	}
	if t.DueDate != nil {
		meta = append(meta, t.DueDate.Format("Jan 2"))
	}
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, st := range t.Subtasks {
			if st.Completed {
				done++
			}
		}
		meta = append(meta, fmt.Sprintf("☑ %d/%d", done, n))
	}
	if len(meta) > 0 {
		line += "\n" + HelpStyle.Render("  "+truncate(strings.Join(meta, " · "), max(width-2, 4)))
	}
	return style.Render(line)
}

func (m Model) renderStatusBar() string {
	if m.mode == ModeFilter {
		return StatusBarStyle.Width(m.width).Render("/" + m.input.View())
	}

	help := "a:add  e:rename  x:done  H/L:move  1-5:priority  d:del  /:filter  ?:help  q:quit"
	switch {
	case m.loading:
		help = "Loading..."
	case m.message != "":
		help = m.message
		if m.isError {
			help = ErrorStyle.Render(help)
		}
	case m.filterText != "":
		help = fmt.Sprintf("/%s  Esc:clear", m.filterText)
	}
	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	title := "Add Task"
	switch m.mode {
	case ModeAddProject:
		title = "New Project"
	case ModeEditTask:
		title = "Rename Task"
	case ModeAddTask:
		if p := m.currentProject(); p != nil {
			title = "Add Task to: " + p.Name
		}
		title += " (" + columnTitles[m.currentStatus()] + ")"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")
	return ModalStyle.Render(content)
}

func (m Model) renderConfirm() string {
	t := m.currentTask()
	if t == nil {
		return ""
	}
	content := lipgloss.NewStyle().Bold(true).Render("Delete task?") + "\n\n"
	content += truncate(t.Title, 50) + "\n\n"
	content += HelpStyle.Render("y:delete  any other key:cancel")
	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	bindings := []struct{ keys, desc string }{
		{"j/k", "move within column or sidebar"},
		{"h/l", "previous / next column"},
		{"Tab", "switch between sidebar and board"},
		{"Enter", "open the selected project"},
		{"a", "add task to the current column"},
		{"e", "rename task"},
		{"x", "toggle completed"},
		{"H/L", "move task to previous / next column"},
		{"1-5", "priority urgent … none"},
		{"d", "delete task"},
		{"p", "new project"},
		{"/", "filter by text"},
		{"r", "refresh"},
		{"ctrl+l", "log out"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Keyboard Shortcuts") + "\n\n")
	for _, kb := range bindings {
		b.WriteString(fmt.Sprintf("  %-8s %s\n", kb.keys, kb.desc))
	}
	b.WriteString("\n" + HelpStyle.Render("Press any key to close"))
	return ModalStyle.Render(b.String())
}
