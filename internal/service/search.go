package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// SearchLimit caps each result list
const SearchLimit = 5

// ProjectHit is a project matched by a search
type ProjectHit struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      model.ProjectStatus `json:"status"`
}

// TaskHit is a task matched by a search
type TaskHit struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      model.TaskStatus `json:"status"`
	Priority    model.Priority   `json:"priority"`
	ProjectID   string           `json:"projectId,omitempty"`
}

// SearchResult holds matches of one query
type SearchResult struct {
	Projects []ProjectHit `json:"projects"`
	Tasks    []TaskHit    `json:"tasks"`
}

// SearchService finds projects and tasks by text
type SearchService struct {
	store store.Store
}

// NewSearchService creates a new search service
func NewSearchService(st store.Store) *SearchService {
	return &SearchService{store: st}
}

// Search matches q case-insensitively against project names and descriptions
// and task titles and descriptions the caller can see
func (s *SearchService) Search(ctx context.Context, me auth.Identity, q string) (*SearchResult, error) {
	res := &SearchResult{Projects: []ProjectHit{}, Tasks: []TaskHit{}}
	q = strings.TrimSpace(q)
	if q == "" {
		return res, nil
	}

	var (
		projects []model.Project
		tasks    []model.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx, me.ID, store.ProjectFilter{Text: q, Limit: SearchLimit})
		return err
	})
	g.Go(func() error {
		sc, err := scope(gctx, s.store, me.ID)
		if err != nil {
			return err
		}
		tasks, err = s.store.ListTasks(gctx, access.TaskQuery{
			Scope:  sc,
			Filter: access.TaskFilter{Text: q},
			Limit:  SearchLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range projects {
		res.Projects = append(res.Projects, ProjectHit{ID: p.ID, Name: p.Name, Description: p.Description, Status: p.Status})
	}
	for _, t := range tasks {
		res.Tasks = append(res.Tasks, TaskHit{
			ID: t.ID, Title: t.Title, Description: t.Description,
			Status: t.Status, Priority: t.Priority, ProjectID: t.ProjectID,
		})
	}
	return res, nil
}
