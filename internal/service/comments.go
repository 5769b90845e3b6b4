package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// CommentInput is the body of a new comment
type CommentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// CommentService manages comments on tasks
type CommentService struct {
	store    store.Store
	tasks    *TaskService
	activity *ActivityService
}

// NewCommentService creates a new comment service
func NewCommentService(st store.Store, tasks *TaskService, activity *ActivityService) *CommentService {
	return &CommentService{store: st, tasks: tasks, activity: activity}
}

// List returns the comments of a visible task, oldest first
func (s *CommentService) List(ctx context.Context, me auth.Identity, taskID string) ([]CommentView, error) {
	if _, err := s.tasks.visible(ctx, me, taskID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return commentViews(ctx, s.store, comments)
}

// Create adds a comment by the caller to a visible task
func (s *CommentService) Create(ctx context.Context, me auth.Identity, taskID string, in CommentInput) (*CommentView, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := check(in); err != nil {
		return nil, err
	}
	t, err := s.tasks.visible(ctx, me, taskID)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{Content: in.Content, AuthorID: me.ID, TaskID: t.ID}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	if err := s.activity.record(ctx, me, model.ActionCommented, model.EntityComment, c.ID, t.Title, t.ProjectID, ""); err != nil {
		return nil, err
	}
	views, err := commentViews(ctx, s.store, []model.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete removes a comment. Only its author may delete it.
func (s *CommentService) Delete(ctx context.Context, me auth.Identity, id string) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return notFound(err, "Comment not found")
	}
	if !access.CanDeleteComment(c, me.ID) {
		return apperr.Denied("Not authorized to delete this comment")
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return notFound(err, "Comment not found")
	}

	var name, projectID string
	t, err := s.store.GetTask(ctx, c.TaskID)
	switch {
	case err == nil:
		name, projectID = t.Title, t.ProjectID
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	return s.activity.record(ctx, me, model.ActionDeleted, model.EntityComment, c.ID, name, projectID, "")
}
