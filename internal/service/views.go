package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// TaskView is a task with its project and people resolved
type TaskView struct {
	model.Task
	Project  *model.ProjectRef  `json:"project,omitempty"`
	Assignee *model.UserSummary `json:"assignedTo,omitempty"`
	Creator  *model.UserSummary `json:"createdBy,omitempty"`
}

// ProjectView is a project with its people resolved and task totals
type ProjectView struct {
	model.Project
	Owner   *model.UserSummary  `json:"owner,omitempty"`
	Members []model.UserSummary `json:"members"`
	model.TaskCounts
}

// CommentView is a comment with its author resolved
type CommentView struct {
	model.Comment
	Author *model.UserSummary `json:"author,omitempty"`
}

// ActivityView is an activity entry with its user resolved
type ActivityView struct {
	model.ActivityLog
	User *model.UserSummary `json:"user,omitempty"`
}

// idSet collects distinct non-empty ids in insertion order
type idSet struct {
	seen map[string]bool
	ids  []string
}

func (s *idSet) add(ids ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, id := range ids {
		if id != "" && !s.seen[id] {
			s.seen[id] = true
			s.ids = append(s.ids, id)
		}
	}
}

func summaryPtr(m map[string]model.UserSummary, id string) *model.UserSummary {
	if s, ok := m[id]; ok {
		return &s
	}
	return nil
}

func taskViews(ctx context.Context, st store.Store, tasks []model.Task) ([]TaskView, error) {
	var projects, users idSet
	for i := range tasks {
		projects.add(tasks[i].ProjectID)
		users.add(tasks[i].AssignedTo, tasks[i].CreatedBy)
	}

	var (
		refs      map[string]model.ProjectRef
		summaries map[string]model.UserSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		refs, err = st.ProjectRefs(gctx, projects.ids)
		return err
	})
	g.Go(func() (err error) {
		summaries, err = st.UserSummaries(gctx, users.ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = TaskView{
			Task:     t,
			Assignee: summaryPtr(summaries, t.AssignedTo),
			Creator:  summaryPtr(summaries, t.CreatedBy),
		}
		if ref, ok := refs[t.ProjectID]; ok {
			views[i].Project = &ref
		}
	}
	return views, nil
}

func taskView(ctx context.Context, st store.Store, t *model.Task) (*TaskView, error) {
	views, err := taskViews(ctx, st, []model.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func projectViews(ctx context.Context, st store.Store, projects []model.Project) ([]ProjectView, error) {
	var ids, users idSet
	for i := range projects {
		ids.add(projects[i].ID)
		users.add(projects[i].OwnerID)
		users.add(projects[i].MemberIDs...)
	}

	var (
		counts    map[string]model.TaskCounts
		summaries map[string]model.UserSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = st.ProjectTaskCounts(gctx, ids.ids)
		return err
	})
	g.Go(func() (err error) {
		summaries, err = st.UserSummaries(gctx, users.ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]ProjectView, len(projects))
	for i, p := range projects {
		v := ProjectView{
			Project:    p,
			Owner:      summaryPtr(summaries, p.OwnerID),
			Members:    make([]model.UserSummary, 0, len(p.MemberIDs)),
			TaskCounts: counts[p.ID],
		}
		for _, id := range p.MemberIDs {
			if s, ok := summaries[id]; ok {
				v.Members = append(v.Members, s)
			}
		}
		views[i] = v
	}
	return views, nil
}

func projectView(ctx context.Context, st store.Store, p *model.Project) (*ProjectView, error) {
	views, err := projectViews(ctx, st, []model.Project{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func commentViews(ctx context.Context, st store.Store, comments []model.Comment) ([]CommentView, error) {
	var users idSet
	for i := range comments {
		users.add(comments[i].AuthorID)
	}
	summaries, err := st.UserSummaries(ctx, users.ids)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{Comment: c, Author: summaryPtr(summaries, c.AuthorID)}
	}
	return views, nil
}

func activityViews(ctx context.Context, st store.Store, entries []model.ActivityLog) ([]ActivityView, error) {
	var users idSet
	for i := range entries {
		users.add(entries[i].UserID)
	}
	summaries, err := st.UserSummaries(ctx, users.ids)
	if err != nil {
		return nil, err
	}
	views := make([]ActivityView, len(entries))
	for i, a := range entries {
		views[i] = ActivityView{ActivityLog: a, User: summaryPtr(summaries, a.UserID)}
	}
	return views, nil
}
