package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Delete a task and its comments. The task's creator, its project's
owner and project members may delete it.

Examples:
  taskboard delete abc123
  taskboard rm abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := resolveTask(ctx, c, args[0])
	if err != nil {
		return err
	}
	if err := c.DeleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	fmt.Printf("🗑  Deleted: \"%s\"\n", task.Title)
	return nil
}
