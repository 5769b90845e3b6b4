package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage the default project",
	Long: `Set or view the current project context.

When a context is set, new tasks are added to that project by default.

Examples:
  taskboard context              # Show current context
  taskboard context set Launch   # Use the 'Launch' project
  taskboard context clear        # New tasks stay personal`,
	RunE: runContextShow,
}

var contextSetCmd = &cobra.Command{
	Use:   "set [project]",
	Short: "Set the current project context",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextSet,
}

var useCmd = &cobra.Command{
	Use:   "use [project]",
	Short: "Add new tasks to this project by default",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextSet,
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the current context",
	RunE:  runContextClear,
}

func init() {
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextClearCmd)
}

func runContextShow(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	id := c.Settings().Context
	if id == "" {
		fmt.Println("📥 Current context: none (new tasks are personal)")
		return nil
	}

	p, err := c.Project(context.Background(), id)
	if err != nil {
		fmt.Printf("⚠️  Context set to '%s' but the project is not available\n", shortID(id))
		return nil
	}
	fmt.Printf("📁 Current context: %s (%d/%d tasks done)\n", p.Name, p.Completed, p.Total)
	return nil
}

func runContextSet(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	p, err := resolveProject(context.Background(), c, args[0])
	if err != nil {
		return err
	}
	if err := c.SetContext(p.ID); err != nil {
		return fmt.Errorf("failed to set context: %w", err)
	}

	fmt.Printf("📁 Switched to: %s\n", p.Name)
	return nil
}

func runContextClear(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.SetContext(""); err != nil {
		return fmt.Errorf("failed to clear context: %w", err)
	}
	fmt.Println("📥 Context cleared, new tasks are personal")
	return nil
}
