// Package service implements the taskboard use cases on top of a store.Store.
// Every operation takes the caller's identity explicitly.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/metrics"
	"github.com/existflow/taskboard/internal/store"
)

// Services bundles every service over one store
type Services struct {
	Auth      *AuthService
	Projects  *ProjectService
	Tasks     *TaskService
	Comments  *CommentService
	Users     *UserService
	Activity  *ActivityService
	Analytics *AnalyticsService
	Search    *SearchService
	Seeder    *Seeder
}

// New wires the services. m may be nil.
func New(st store.Store, tokens *auth.TokenManager, m *metrics.Metrics, seed int64) *Services {
	activity := NewActivityService(st, m)
	tasks := NewTaskService(st, activity)
	return &Services{
		Auth:      NewAuthService(st, tokens),
		Projects:  NewProjectService(st, activity, m),
		Tasks:     tasks,
		Comments:  NewCommentService(st, tasks, activity),
		Users:     NewUserService(st),
		Activity:  activity,
		Analytics: NewAnalyticsService(st),
		Search:    NewSearchService(st),
		Seeder:    NewSeeder(st, seed),
	}
}

// notFound turns store.ErrNotFound into a 404 with msg and passes other errors through
func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(err, apperr.NotFound, msg)
	}
	return err
}

// scope computes the task visibility set of the caller
func scope(ctx context.Context, st store.Store, userID string) (*access.TaskScope, error) {
	ids, err := st.AccessibleProjectIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return access.NewTaskScope(userID, ids), nil
}

// clock is replaced in tests
var clock = func() time.Time { return time.Now().UTC() }
