package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task with its checklist and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var showToggle string

func init() {
	showCmd.Flags().StringVar(&showToggle, "toggle", "", "Toggle the checklist entry with this number or id first")
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := resolveTask(ctx, c, args[0])
	if err != nil {
		return err
	}

	if showToggle != "" {
		subtaskID := showToggle
		var n int
		if _, err := fmt.Sscanf(showToggle, "%d", &n); err == nil && n >= 1 && n <= len(task.Subtasks) {
			subtaskID = task.Subtasks[n-1].ID
		}
		if task, err = c.ToggleSubtask(ctx, task.ID, subtaskID); err != nil {
			return err
		}
	}

	fmt.Printf("\n%s %s  (%s)\n", statusIcon(task.Status), task.Title, task.ID)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("Status:    %s\n", task.Status)
	fmt.Printf("Priority:  %s\n", task.Priority)
	if task.Project != nil {
		fmt.Printf("Project:   %s\n", task.Project.Name)
	}
	if task.Creator != nil {
		fmt.Printf("Creator:   %s\n", task.Creator.Name)
	}
	if task.Assignee != nil {
		fmt.Printf("Assignee:  %s\n", task.Assignee.Name)
	}
	if task.DueDate != nil {
		fmt.Printf("Due:       %s\n", task.DueDate.Format("Mon Jan 2 2006"))
	}
	if len(task.Labels) > 0 {
		fmt.Printf("Labels:    %s\n", strings.Join(task.Labels, ", "))
	}
	if task.Description != "" {
		fmt.Printf("\n%s\n", task.Description)
	}

	if len(task.Subtasks) > 0 {
		fmt.Println("\nChecklist:")
		for i, st := range task.Subtasks {
			mark := "[ ]"
			if st.Completed {
				mark = "[x]"
			}
			fmt.Printf("  %d. %s %s\n", i+1, mark, st.Title)
		}
	}

	comments, err := c.Comments(ctx, task.ID)
	if err != nil {
		return err
	}
	if len(comments) > 0 {
		fmt.Println("\nComments:")
		for _, cm := range comments {
			author := cm.AuthorID
			if cm.Author != nil {
				author = cm.Author.Name
			}
			fmt.Printf("  %s  %s: %s\n", cm.CreatedAt.Local().Format("Jan 2 15:04"), author, cm.Content)
		}
	}
	fmt.Println()
	return nil
}
