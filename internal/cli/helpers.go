package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskboard/internal/client"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

const fullIDLen = 36

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTask accepts a full task id or a unique prefix of one
func resolveTask(ctx context.Context, c *client.Client, id string) (*service.TaskView, error) {
	if len(id) >= fullIDLen {
		return c.Task(ctx, id)
	}

	tasks, err := c.Tasks(ctx, client.TaskFilter{})
	if err != nil {
		return nil, err
	}
	var match *service.TaskView
	for i := range tasks {
		if strings.HasPrefix(tasks[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("task id %q is ambiguous", id)
			}
			match = &tasks[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return match, nil
}

// resolveProject accepts a project id, a unique id prefix or an exact name
func resolveProject(ctx context.Context, c *client.Client, ref string) (*service.ProjectView, error) {
	if len(ref) >= fullIDLen {
		return c.Project(ctx, ref)
	}

	projects, err := c.Projects(ctx, "")
	if err != nil {
		return nil, err
	}
	var match *service.ProjectView
	for i := range projects {
		p := &projects[i]
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("project %q is ambiguous", ref)
			}
			match = p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("project not found: %s", ref)
	}
	return match, nil
}

// parseStatus accepts the status names and a few shorthands
func parseStatus(s string) (model.TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return model.StatusTodo, nil
	case "in-progress", "progress", "doing", "wip":
		return model.StatusInProgress, nil
	case "in-review", "review":
		return model.StatusInReview, nil
	case "completed", "done":
		return model.StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q (todo, in-progress, in-review, completed)", s)
}

func parsePriority(s string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q (urgent, high, medium, low, none)", s)
	}
	return p, nil
}

// parseDue accepts today, tomorrow, +Nd or a YYYY-MM-DD date
func parseDue(s string, now time.Time) (time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch s = strings.ToLower(strings.TrimSpace(s)); {
	case s == "today":
		return day, nil
	case s == "tomorrow":
		return day.AddDate(0, 0, 1), nil
	case strings.HasPrefix(s, "+") && strings.HasSuffix(s, "d"):
		var n int
		if _, err := fmt.Sscanf(s, "+%dd", &n); err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q", s)
		}
		return day.AddDate(0, 0, n), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (use YYYY-MM-DD, today, tomorrow or +Nd)", s)
	}
	return t, nil
}

func statusIcon(s model.TaskStatus) string {
	switch s {
	case model.StatusCompleted:
		return "[x]"
	case model.StatusInProgress:
		return "[~]"
	case model.StatusInReview:
		return "[?]"
	default:
		return "[ ]"
	}
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "▲ urgent"
	case model.PriorityHigh:
		return "▲ high"
	case model.PriorityNone:
		return ""
	default:
		return "  " + string(p)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
