package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// UserStats summarizes a user's workload
type UserStats struct {
	ProjectCount       int   `json:"projectCount"`
	TaskCount          int64 `json:"taskCount"`
	CompletedTaskCount int64 `json:"completedTaskCount"`
}

// UserDetail is a user with stats
type UserDetail struct {
	User  *model.User `json:"user"`
	Stats UserStats   `json:"stats"`
}

// UserService lists accounts
type UserService struct {
	store store.Store
}

// NewUserService creates a new user service
func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// List returns users sorted by name, optionally matching search on name or email
func (s *UserService) List(ctx context.Context, search string) ([]model.User, error) {
	return s.store.ListUsers(ctx, store.UserFilter{Text: strings.TrimSpace(search)})
}

// Get returns a user with project and assigned task counts
func (s *UserService) Get(ctx context.Context, id string) (*UserDetail, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}

	var stats UserStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.store.AccessibleProjectIDs(gctx, id)
		stats.ProjectCount = len(ids)
		return err
	})
	g.Go(func() (err error) {
		stats.TaskCount, err = s.store.CountTasks(gctx, access.TaskQuery{
			Filter: access.TaskFilter{AssignedTo: id},
		})
		return err
	})
	g.Go(func() (err error) {
		stats.CompletedTaskCount, err = s.store.CountTasks(gctx, access.TaskQuery{
			Filter: access.TaskFilter{AssignedTo: id, Status: model.StatusCompleted},
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &UserDetail{User: u, Stats: stats}, nil
}
