package service

import (
	"context"
	"strings"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/metrics"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// CreateProjectInput is the body of a project creation
type CreateProjectInput struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=1000"`
	Status      model.ProjectStatus `json:"status" validate:"omitempty,oneof=active completed archived"`
	Members     []string            `json:"members" validate:"omitempty,dive,required"`
	Color       string              `json:"color" validate:"max=32"`
	Icon        string              `json:"icon" validate:"max=64"`
}

// UpdateProjectInput changes a project. Absent fields are left alone.
type UpdateProjectInput struct {
	Name        *string              `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string              `json:"description" validate:"omitnil,max=1000"`
	Status      *model.ProjectStatus `json:"status" validate:"omitnil,oneof=active completed archived"`
	Members     *[]string            `json:"members" validate:"omitnil,dive,required"`
	Color       *string              `json:"color" validate:"omitnil,max=32"`
	Icon        *string              `json:"icon" validate:"omitnil,max=64"`
}

// ProjectListInput filters a project listing
type ProjectListInput struct {
	Status model.ProjectStatus `query:"status" json:"status" validate:"omitempty,oneof=active completed archived"`
}

// ProjectService manages projects and their membership
type ProjectService struct {
	store    store.Store
	activity *ActivityService
	metrics  *metrics.Metrics
}

// NewProjectService creates a new project service. m may be nil.
func NewProjectService(st store.Store, activity *ActivityService, m *metrics.Metrics) *ProjectService {
	return &ProjectService{store: st, activity: activity, metrics: m}
}

// List returns the caller's projects, newest first, with task totals
func (s *ProjectService) List(ctx context.Context, me auth.Identity, in ProjectListInput) ([]ProjectView, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, me.ID, store.ProjectFilter{Status: in.Status})
	if err != nil {
		return nil, err
	}
	return projectViews(ctx, s.store, projects)
}

// Get returns one project the caller can access
func (s *ProjectService) Get(ctx context.Context, me auth.Identity, id string) (*ProjectView, error) {
	p, err := s.accessible(ctx, me, id, "Project not found")
	if err != nil {
		return nil, err
	}
	return projectView(ctx, s.store, p)
}

func (s *ProjectService) accessible(ctx context.Context, me auth.Identity, id, msg string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, notFound(err, msg)
	}
	if !access.CanAccessProject(p, me.ID) {
		return nil, apperr.Missing(msg)
	}
	return p, nil
}

// members dedupes ids, drops the owner and checks every user exists
func (s *ProjectService) members(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	var set idSet
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != ownerID {
			set.add(id)
		}
	}
	if len(set.ids) == 0 {
		return []string{}, nil
	}

	known, err := s.store.UserSummaries(ctx, set.ids)
	if err != nil {
		return nil, err
	}
	var unknown []apperr.FieldError
	for _, id := range set.ids {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, apperr.FieldError{Field: "members", Message: "User " + id + " does not exist"})
		}
	}
	if len(unknown) > 0 {
		return nil, apperr.Invalid("Validation error", unknown...)
	}
	return set.ids, nil
}

// Create makes the caller the owner of a new project
func (s *ProjectService) Create(ctx context.Context, me auth.Identity, in CreateProjectInput) (*ProjectView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}
	members, err := s.members(ctx, me.ID, in.Members)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.ProjectActive
	}

	p := &model.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      status,
		OwnerID:     me.ID,
		MemberIDs:   members,
		Color:       in.Color,
		Icon:        in.Icon,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	if err := s.activity.record(ctx, me, model.ActionCreated, model.EntityProject, p.ID, p.Name, p.ID, ""); err != nil {
		return nil, err
	}
	return projectView(ctx, s.store, p)
}

// Update changes a project. Owner and members may update.
func (s *ProjectService) Update(ctx context.Context, me auth.Identity, id string, in UpdateProjectInput) (*ProjectView, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := check(in); err != nil {
		return nil, err
	}
	p, err := s.accessible(ctx, me, id, "Project not found or you do not have permission to update it")
	if err != nil {
		return nil, err
	}

	upd := store.ProjectUpdate{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Color:       in.Color,
		Icon:        in.Icon,
	}
	if in.Members != nil {
		members, err := s.members(ctx, p.OwnerID, *in.Members)
		if err != nil {
			return nil, err
		}
		upd.MemberIDs = &members
	}

	updated, err := s.store.UpdateProject(ctx, id, upd)
	if err != nil {
		return nil, notFound(err, "Project not found")
	}
	if err := s.activity.record(ctx, me, model.ActionUpdated, model.EntityProject, p.ID, p.Name, p.ID, ""); err != nil {
		return nil, err
	}
	return projectView(ctx, s.store, updated)
}

// Delete removes a project with its tasks, their comments and its activity.
// Only the owner may delete.
func (s *ProjectService) Delete(ctx context.Context, me auth.Identity, id string) (store.CascadeResult, error) {
	const msg = "Project not found or you do not have permission to delete it"
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return store.CascadeResult{}, notFound(err, msg)
	}
	if !access.CanDeleteProject(p, me.ID) {
		return store.CascadeResult{}, apperr.Missing(msg)
	}

	res, err := s.store.DeleteProjectCascade(ctx, id)
	if err != nil {
		return store.CascadeResult{}, notFound(err, msg)
	}
	s.metrics.RecordCascade(res.Tasks, res.Comments, res.Activities)
	logger.Info("Project deleted",
		logger.F("project_id", id),
		logger.F("tasks", res.Tasks),
		logger.F("comments", res.Comments),
		logger.F("activities", res.Activities))

	// written after the cascade so it survives it; no project id
	if err := s.activity.record(ctx, me, model.ActionDeleted, model.EntityProject, p.ID, p.Name, "", ""); err != nil {
		return res, err
	}
	return res, nil
}
