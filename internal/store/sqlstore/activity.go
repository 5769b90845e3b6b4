package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

type activityRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	EntityName string         `db:"entity_name"`
	ProjectID  sql.NullString `db:"project_id"`
	Details    string         `db:"details"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r activityRow) model() model.ActivityLog {
	return model.ActivityLog{
		ID:         r.ID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: model.EntityType(r.EntityType),
		EntityID:   r.EntityID,
		EntityName: r.EntityName,
		ProjectID:  r.ProjectID.String,
		Details:    r.Details,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

const activityColumns = `id, user_id, action, entity_type, entity_id, entity_name, project_id, details, created_at`

// RecordActivity appends a
func (s *Store) RecordActivity(ctx context.Context, a *model.ActivityLog) error {
	a.ID = newID(a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = store.Now()
	}
	a.CreatedAt = store.Timestamp(a.CreatedAt)

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO activity_logs (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.UserID, a.Action, string(a.EntityType), a.EntityID, a.EntityName,
		nullString(a.ProjectID), a.Details, a.CreatedAt,
	)
	return translate(err, "insert activity")
}

// ListActivity returns entries selected by f, newest first
func (s *Store) ListActivity(ctx context.Context, f store.ActivityFilter) ([]model.ActivityLog, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_logs`
	var args []interface{}
	switch {
	case f.ProjectID != "":
		query += ` WHERE project_id = ?`
		args = append(args, f.ProjectID)
	case len(f.ProjectIDs) > 0:
		query += ` WHERE (user_id = ? OR project_id IN (?))`
		args = append(args, f.UserID, f.ProjectIDs)
	default:
		query += ` WHERE user_id = ?`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	query, args, err := in(s.db, query, args...)
	if err != nil {
		return nil, err
	}
	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list activity")
	}
	entries := make([]model.ActivityLog, len(rows))
	for i, r := range rows {
		entries[i] = r.model()
	}
	return entries, nil
}
