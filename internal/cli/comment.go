package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment [task-id] [text]",
	Short: "Comment on a task",
	Long: `Add a comment to a task, or delete one of your comments.

Examples:
  taskboard comment abc123 "Looks good to me"
  taskboard comment --delete 4f2c9d1e-...`,
	Args: func(cmd *cobra.Command, args []string) error {
		if commentDelete != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(2)(cmd, args)
	},
	RunE: runComment,
}

var commentDelete string

func init() {
	commentCmd.Flags().StringVar(&commentDelete, "delete", "", "Delete the comment with this id")
}

func runComment(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if commentDelete != "" {
		if err := c.DeleteComment(ctx, commentDelete); err != nil {
			return err
		}
		fmt.Println("🗑  Comment deleted")
		return nil
	}

	task, err := resolveTask(ctx, c, args[0])
	if err != nil {
		return err
	}
	comment, err := c.AddComment(ctx, task.ID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("💬 Commented on \"%s\" (%s)\n", task.Title, shortID(comment.ID))
	return nil
}
