package service

import (
	"context"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/metrics"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// Feed sizes used when the caller gives no limit, and the cap on any limit
const (
	DefaultFeedLimit        = 20
	DefaultProjectFeedLimit = 30
	MaxFeedLimit            = 100
)

// ActivityService appends and reads the audit trail
type ActivityService struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewActivityService creates the activity recorder. m may be nil.
func NewActivityService(st store.Store, m *metrics.Metrics) *ActivityService {
	return &ActivityService{store: st, metrics: m}
}

// Record appends one entry
func (s *ActivityService) Record(ctx context.Context, entry *model.ActivityLog) error {
	if err := s.store.RecordActivity(ctx, entry); err != nil {
		logger.Error("Failed to record activity",
			logger.F("action", entry.Action),
			logger.F("entity_id", entry.EntityID),
			logger.Err(err))
		return err
	}
	s.metrics.RecordActivity(entry.Action, string(entry.EntityType))
	return nil
}

func (s *ActivityService) record(ctx context.Context, me auth.Identity, action string, kind model.EntityType, id, name, projectID, details string) error {
	return s.Record(ctx, &model.ActivityLog{
		UserID:     me.ID,
		Action:     action,
		EntityType: kind,
		EntityID:   id,
		EntityName: name,
		ProjectID:  projectID,
		Details:    details,
	})
}

func feedLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > MaxFeedLimit:
		return MaxFeedLimit
	default:
		return limit
	}
}

// Feed returns recent entries on the caller's projects or made by the caller
func (s *ActivityService) Feed(ctx context.Context, me auth.Identity, limit int) ([]ActivityView, error) {
	ids, err := s.store.AccessibleProjectIDs(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListActivity(ctx, store.ActivityFilter{
		ProjectIDs: ids,
		UserID:     me.ID,
		Limit:      feedLimit(limit, DefaultFeedLimit),
	})
	if err != nil {
		return nil, err
	}
	return activityViews(ctx, s.store, entries)
}

// ProjectFeed returns recent entries of one project the caller can access
func (s *ActivityService) ProjectFeed(ctx context.Context, me auth.Identity, projectID string, limit int) ([]ActivityView, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "Project not found")
	}
	if !access.CanAccessProject(p, me.ID) {
		return nil, apperr.Missing("Project not found")
	}
	entries, err := s.store.ListActivity(ctx, store.ActivityFilter{
		ProjectID: projectID,
		Limit:     feedLimit(limit, DefaultProjectFeedLimit),
	})
	if err != nil {
		return nil, err
	}
	return activityViews(ctx, s.store, entries)
}
