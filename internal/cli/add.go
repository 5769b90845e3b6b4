package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/service"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task. Without --project the task goes to the current context,
or stays personal when no context is set.

Examples:
  taskboard add "Buy groceries"
  taskboard add "Fix login" --project Launch -p high --due tomorrow
  taskboard add "Write docs" --label docs --sub "outline" --sub "draft"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addProject     string
	addPriority    string
	addDue         string
	addDescription string
	addAssign      string
	addLabels      []string
	addSubtasks    []string
	addPersonal    bool
)

func init() {
	addCmd.Flags().StringVarP(&addProject, "project", "P", "", "Project id or name")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority (urgent, high, medium, low, none)")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date (YYYY-MM-DD, today, tomorrow, +3d)")
	addCmd.Flags().StringVar(&addDescription, "desc", "", "Description")
	addCmd.Flags().StringVarP(&addAssign, "assign", "a", "", "Assignee user id, or 'me'")
	addCmd.Flags().StringSliceVarP(&addLabels, "label", "l", nil, "Labels")
	addCmd.Flags().StringArrayVar(&addSubtasks, "sub", nil, "Checklist entries")
	addCmd.Flags().BoolVar(&addPersonal, "personal", false, "Ignore the current context")
}

func runAdd(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	in := service.CreateTaskInput{
		Title:       strings.Join(args, " "),
		Description: addDescription,
		Labels:      addLabels,
	}

	projectRef := addProject
	if projectRef == "" && !addPersonal {
		projectRef = c.Settings().Context
	}
	if projectRef != "" {
		p, err := resolveProject(ctx, c, projectRef)
		if err != nil {
			return err
		}
		in.Project = p.ID
	}

	if addPriority != "" {
		if in.Priority, err = parsePriority(addPriority); err != nil {
			return err
		}
	}
	if addDue != "" {
		due, err := parseDue(addDue, time.Now())
		if err != nil {
			return err
		}
		in.DueDate = &service.Date{Time: due}
	}
	switch addAssign {
	case "":
	case "me":
		in.AssignedTo = c.Settings().UserID
	default:
		in.AssignedTo = addAssign
	}
	for _, title := range addSubtasks {
		in.Subtasks = append(in.Subtasks, service.SubtaskInput{Title: title})
	}

	task, err := c.CreateTask(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	where := "Personal"
	if task.Project != nil {
		where = task.Project.Name
	}
	fmt.Printf("✓ Added to [%s]: \"%s\" (%s, %s)\n", where, task.Title, shortID(task.ID), task.Priority)
	return nil
}
