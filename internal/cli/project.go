package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list and manage the projects you own or belong to.`,
}

var projectNewCmd = &cobra.Command{
	Use:     "new [name]",
	Aliases: []string{"add"},
	Short:   "Create a new project",
	Long: `Create a new project owned by you.

Examples:
  taskboard project new "Launch"
  taskboard project new "Website" --color "#3B82F6" --member <user-id>`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show a project with its members",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectStatusCmd = &cobra.Command{
	Use:   "status [project] [active|completed|archived]",
	Short: "Change a project's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectStatus,
}

var projectMembersCmd = &cobra.Command{
	Use:   "members [project] [user-id...]",
	Short: "Replace a project's member list",
	Long: `Replace a project's member list. Pass no user ids to remove everyone
but the owner.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectMembers,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Delete a project with all its tasks and comments",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var (
	projectColor   string
	projectDesc    string
	projectMembers []string
	projectStatus  string
	projectYes     bool
)

func init() {
	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectStatusCmd)
	projectCmd.AddCommand(projectMembersCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	projectNewCmd.Flags().StringVarP(&projectColor, "color", "c", "", "Project color (hex)")
	projectNewCmd.Flags().StringVar(&projectDesc, "desc", "", "Description")
	projectNewCmd.Flags().StringSliceVarP(&projectMembers, "member", "m", nil, "Member user ids")
	projectListCmd.Flags().StringVarP(&projectStatus, "status", "s", "", "Filter by status")
	projectDeleteCmd.Flags().BoolVarP(&projectYes, "yes", "y", false, "Skip confirmation")
}

func parseProjectStatus(s string) (model.ProjectStatus, error) {
	st := model.ProjectStatus(strings.ToLower(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown project status %q (active, completed, archived)", s)
	}
	return st, nil
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	p, err := c.CreateProject(context.Background(), service.CreateProjectInput{
		Name:        strings.Join(args, " "),
		Description: projectDesc,
		Color:       projectColor,
		Members:     projectMembers,
	})
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Printf("📁 Created project: %s (%s)\n", p.Name, shortID(p.ID))
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	var status model.ProjectStatus
	if projectStatus != "" {
		if status, err = parseProjectStatus(projectStatus); err != nil {
			return err
		}
	}

	projects, err := c.Projects(context.Background(), status)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with: taskboard project new \"Name\"")
		return nil
	}

	me := c.Settings()
	fmt.Println()
	for _, p := range projects {
		marker := "  "
		if p.ID == me.Context {
			marker = "❯ "
		}
		role := "member"
		if p.OwnerID == me.UserID {
			role = "owner"
		}
		fmt.Printf("%s%-8s  %-24s  %-9s  %-6s  %d/%d done\n",
			marker, shortID(p.ID), truncate(p.Name, 24), p.Status, role, p.Completed, p.Total)
	}
	fmt.Println()
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	p, err := resolveProject(context.Background(), c, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\n📁 %s  (%s)\n", p.Name, p.ID)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("Status:   %s\n", p.Status)
	fmt.Printf("Tasks:    %d/%d done\n", p.Completed, p.Total)
	if p.Owner != nil {
		fmt.Printf("Owner:    %s <%s>\n", p.Owner.Name, p.Owner.Email)
	}
	for _, m := range p.Members {
		fmt.Printf("Member:   %s <%s>  %s\n", m.Name, m.Email, m.ID)
	}
	if p.Description != "" {
		fmt.Printf("\n%s\n", p.Description)
	}
	fmt.Println()
	return nil
}

func runProjectStatus(cmd *cobra.Command, args []string) error {
	status, err := parseProjectStatus(args[1])
	if err != nil {
		return err
	}
	return updateProject(args[0], map[string]interface{}{"status": status})
}

func runProjectMembers(cmd *cobra.Command, args []string) error {
	members := args[1:]
	if members == nil {
		members = []string{}
	}
	return updateProject(args[0], map[string]interface{}{"members": members})
}

func updateProject(ref string, changes map[string]interface{}) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, c, ref)
	if err != nil {
		return err
	}
	updated, err := c.UpdateProject(ctx, p.ID, changes)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	fmt.Printf("📁 Updated %s (%s, %d members)\n", updated.Name, updated.Status, len(updated.Members))
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, c, args[0])
	if err != nil {
		return err
	}

	if !projectYes {
		reader := bufio.NewReader(os.Stdin)
		answer := prompt(reader, fmt.Sprintf("Delete %q with its %d tasks? [y/N] ", p.Name, p.Total))
		if !strings.EqualFold(answer, "y") {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	removed, err := c.DeleteProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if c.Settings().Context == p.ID {
		_ = c.SetContext("")
	}

	fmt.Printf("🗑  Deleted %s: %d tasks, %d comments, %d activity entries\n",
		p.Name, removed.Tasks, removed.Comments, removed.Activities)
	return nil
}
