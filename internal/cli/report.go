package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/service"
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search projects and tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task and project statistics",
	RunE:  runStats,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent activity",
	Long: `Show recent activity on your projects, or on one project.

Examples:
  taskboard activity
  taskboard activity --project Launch -n 50`,
	RunE: runActivity,
}

var (
	activityProject string
	activityLimit   int
)

func init() {
	activityCmd.Flags().StringVarP(&activityProject, "project", "P", "", "Project id or name")
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 0, "Number of entries")
}

func runSearch(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	res, err := c.Search(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(res.Projects) == 0 && len(res.Tasks) == 0 {
		fmt.Println("Nothing found.")
		return nil
	}

	if len(res.Projects) > 0 {
		fmt.Println("\nProjects:")
		for _, p := range res.Projects {
			fmt.Printf("  📁 %-8s  %s (%s)\n", shortID(p.ID), p.Name, p.Status)
		}
	}
	if len(res.Tasks) > 0 {
		fmt.Println("\nTasks:")
		for _, t := range res.Tasks {
			fmt.Printf("  %s %-8s  %s\n", statusIcon(t.Status), shortID(t.ID), t.Title)
		}
	}
	fmt.Println()
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	a, err := c.Analytics(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("\nTasks: %d   Projects: %d   Overdue: %d\n", a.Totals.Tasks, a.Totals.Projects, a.Totals.Overdue)
	printBuckets("My tasks by status", a.TasksByStatus)
	printBuckets("My tasks by priority", a.TasksByPriority)
	printBuckets("Projects by status", a.ProjectsByStatus)

	fmt.Println("\nCompleted in the last week:")
	for _, p := range a.CompletionTrend {
		fmt.Printf("  %s  %s %d\n", p.Date, strings.Repeat("█", p.Completed), p.Completed)
	}
	fmt.Println()
	return nil
}

func printBuckets(title string, buckets []service.Bucket) {
	fmt.Printf("\n%s:\n", title)
	if len(buckets) == 0 {
		fmt.Println("  none")
		return
	}
	for _, b := range buckets {
		fmt.Printf("  %-12s %d\n", b.Name, b.Value)
	}
}

func runActivity(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projectID := ""
	if activityProject != "" {
		p, err := resolveProject(ctx, c, activityProject)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	entries, err := c.Activity(ctx, projectID, activityLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No activity yet.")
		return nil
	}

	fmt.Println()
	for _, e := range entries {
		fmt.Println("  " + describeActivity(e))
	}
	fmt.Println()
	return nil
}

// describeActivity renders one feed line such as
// "Jan 2 15:04  Ada updated task "Fix login" (status → completed)"
func describeActivity(e service.ActivityView) string {
	who := "someone"
	if e.User != nil {
		who = e.User.Name
	}
	line := fmt.Sprintf("%s  %s %s %s %q",
		e.CreatedAt.Local().Format("Jan 2 15:04"), who, e.Action, e.EntityType, e.EntityName)
	if e.Details != "" {
		line += " (" + e.Details + ")"
	}
	return line
}
