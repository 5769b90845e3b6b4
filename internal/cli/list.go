package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/client"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List the tasks you can see, grouped by project.

Examples:
  taskboard list
  taskboard list --project Launch
  taskboard list --status in-progress --mine
  taskboard list --label bug,frontend`,
	RunE: runList,
}

var (
	listProject  string
	listStatus   string
	listPriority string
	listLabels   []string
	listSearch   string
	listMine     bool
	listDone     bool
)

func init() {
	listCmd.Flags().StringVarP(&listProject, "project", "P", "", "Filter by project id or name")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status")
	listCmd.Flags().StringVarP(&listPriority, "priority", "p", "", "Filter by priority")
	listCmd.Flags().StringSliceVarP(&listLabels, "label", "l", nil, "Filter by any of these labels")
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Filter by text in title or description")
	listCmd.Flags().BoolVarP(&listMine, "mine", "m", false, "Only tasks assigned to me")
	listCmd.Flags().BoolVar(&listDone, "done", false, "Include completed tasks")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	f := client.TaskFilter{Labels: listLabels, Search: listSearch}
	if listProject != "" {
		p, err := resolveProject(ctx, c, listProject)
		if err != nil {
			return err
		}
		f.Project = p.ID
	}
	if listStatus != "" {
		if f.Status, err = parseStatus(listStatus); err != nil {
			return err
		}
	}
	if listPriority != "" {
		if f.Priority, err = parsePriority(listPriority); err != nil {
			return err
		}
	}
	if listMine {
		f.AssignedTo = c.Settings().UserID
	}

	tasks, err := c.Tasks(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if !listDone && f.Status == "" {
		tasks = pending(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found. Add one with: taskboard add \"Your task\"")
		return nil
	}
	printTasksByProject(tasks, time.Now())
	return nil
}

func pending(tasks []service.TaskView) []service.TaskView {
	out := tasks[:0]
	for _, t := range tasks {
		if t.Status != model.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

func printTasksByProject(tasks []service.TaskView, now time.Time) {
	groups := make(map[string][]service.TaskView)
	names := make(map[string]string)
	for _, t := range tasks {
		key, name := "", "Personal"
		if t.Project != nil {
			key, name = t.Project.ID, t.Project.Name
		}
		groups[key] = append(groups[key], t)
		names[key] = name
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return names[keys[i]] < names[keys[j]] })

	for _, k := range keys {
		printTasks(names[k], groups[k], now)
	}
}

func printTasks(projectName string, tasks []service.TaskView, now time.Time) {
	open := 0
	for _, t := range tasks {
		if t.Status != model.StatusCompleted {
			open++
		}
	}

	fmt.Printf("\n📁 %s (%d open)\n", projectName, open)
	fmt.Println(strings.Repeat("─", 72))
	for _, t := range tasks {
		printTask(t, now)
	}
	fmt.Println()
}

func printTask(t service.TaskView, now time.Time) {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format("Jan 2")
		if t.Status != model.StatusCompleted && t.DueDate.Before(now) {
			due = "!" + due
		}
	}

	assignee := ""
	if t.Assignee != nil {
		assignee = "@" + t.Assignee.Name
	}

	fmt.Printf("  %s  %-8s  %-36s  %-7s  %-9s  %s\n",
		statusIcon(t.Status), shortID(t.ID), truncate(t.Title, 36), due, priorityLabel(t.Priority), assignee)
}
