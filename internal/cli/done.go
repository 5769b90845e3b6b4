package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as completed",
	Long: `Mark a task as completed.

Examples:
  taskboard done abc123
  taskboard done abc123 --undo`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

var moveCmd = &cobra.Command{
	Use:   "move [task-id] [status]",
	Short: "Move a task to another board column",
	Long: `Change a task's status. Any status may move to any other.

Examples:
  taskboard move abc123 in-progress
  taskboard move abc123 review`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var doneUndo bool

func init() {
	doneCmd.Flags().BoolVar(&doneUndo, "undo", false, "Move the task back to todo")
}

func runDone(cmd *cobra.Command, args []string) error {
	status := model.StatusCompleted
	if doneUndo {
		status = model.StatusTodo
	}
	return setStatus(args[0], status)
}

func runMove(cmd *cobra.Command, args []string) error {
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}
	return setStatus(args[0], status)
}

func setStatus(id string, status model.TaskStatus) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := resolveTask(ctx, c, id)
	if err != nil {
		return err
	}

	updated, err := c.UpdateTask(ctx, task.ID, map[string]interface{}{"status": status})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	switch updated.Status {
	case model.StatusCompleted:
		fmt.Printf("✓ Completed: \"%s\"\n", updated.Title)
	case model.StatusTodo:
		fmt.Printf("○ Reopened: \"%s\"\n", updated.Title)
	default:
		fmt.Printf("→ %s: \"%s\"\n", updated.Status, updated.Title)
	}
	return nil
}
