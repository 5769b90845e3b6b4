package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// TrendDays is the width of the completion trend window
const TrendDays = 7

// Bucket is one named count in a breakdown
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TrendPoint is the number of tasks completed on one day
type TrendPoint struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// Totals are counts over the caller's visible data
type Totals struct {
	Tasks    int `json:"tasks"`
	Projects int `json:"projects"`
	Overdue  int `json:"overdue"`
}

// Analytics is the dashboard overview of one user
type Analytics struct {
	TasksByStatus    []Bucket     `json:"tasksByStatus"`
	TasksByPriority  []Bucket     `json:"tasksByPriority"`
	ProjectsByStatus []Bucket     `json:"projectsByStatus"`
	CompletionTrend  []TrendPoint `json:"completionTrend"`
	Totals           Totals       `json:"totals"`
}

// AnalyticsService aggregates dashboard numbers
type AnalyticsService struct {
	store store.Store
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(st store.Store) *AnalyticsService {
	return &AnalyticsService{store: st}
}

// Overview computes the caller's dashboard
func (s *AnalyticsService) Overview(ctx context.Context, me auth.Identity) (*Analytics, error) {
	var (
		involved []model.Task
		visible  []model.Task
		projects []model.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		involved, err = s.store.ListTasks(gctx, access.TaskQuery{
			Filter: access.TaskFilter{Involving: me.ID},
		})
		return err
	})
	g.Go(func() error {
		sc, err := scope(gctx, s.store, me.ID)
		if err != nil {
			return err
		}
		visible, err = s.store.ListTasks(gctx, access.TaskQuery{Scope: sc})
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx, me.ID, store.ProjectFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summarize(involved, visible, projects, clock()), nil
}

func summarize(involved, visible []model.Task, projects []model.Project, now time.Time) *Analytics {
	byStatus := make(map[model.TaskStatus]int)
	byPriority := make(map[model.Priority]int)
	for _, t := range involved {
		byStatus[t.Status]++
		byPriority[t.Priority]++
	}
	projectStatus := make(map[model.ProjectStatus]int)
	for _, p := range projects {
		projectStatus[p.Status]++
	}

	a := &Analytics{
		TasksByStatus:    []Bucket{},
		TasksByPriority:  []Bucket{},
		ProjectsByStatus: []Bucket{},
		Totals:           Totals{Tasks: len(visible), Projects: len(projects)},
	}
	for _, st := range model.TaskStatuses {
		if n := byStatus[st]; n > 0 {
			a.TasksByStatus = append(a.TasksByStatus, Bucket{Name: string(st), Value: n})
		}
	}
	for _, p := range model.Priorities {
		if n := byPriority[p]; n > 0 {
			a.TasksByPriority = append(a.TasksByPriority, Bucket{Name: string(p), Value: n})
		}
	}
	for _, st := range model.ProjectStatuses {
		if n := projectStatus[st]; n > 0 {
			a.ProjectsByStatus = append(a.ProjectsByStatus, Bucket{Name: string(st), Value: n})
		}
	}

	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(TrendDays - 1))
	daily := make(map[string]int)
	for i := range visible {
		t := &visible[i]
		if t.IsOverdue(now) {
			a.Totals.Overdue++
		}
		if t.IsDone() && !t.UpdatedAt.Before(start) {
			daily[t.UpdatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	for d := 0; d < TrendDays; d++ {
		day := start.AddDate(0, 0, d).Format(time.DateOnly)
		a.CompletionTrend = append(a.CompletionTrend, TrendPoint{Date: day, Completed: daily[day]})
	}
	return a
}
