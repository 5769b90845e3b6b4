package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

type projectRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	OwnerID     string    `db:"owner_id"`
	Color       string    `db:"color"`
	Icon        string    `db:"icon"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r projectRow) model() model.Project {
	return model.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      model.ProjectStatus(r.Status),
		OwnerID:     r.OwnerID,
		MemberIDs:   []string{},
		Color:       r.Color,
		Icon:        r.Icon,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const projectColumns = `id, name, description, status, owner_id, color, icon, created_at, updated_at`

// CreateProject inserts p with its members
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = store.Now()
	}
	p.CreatedAt = store.Timestamp(p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO projects (`+projectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			p.ID, p.Name, p.Description, string(p.Status), p.OwnerID, p.Color, p.Icon, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return translate(err, "insert project")
		}
		return insertMembers(ctx, tx, p.ID, p.MemberIDs)
	})
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, projectID string, memberIDs []string) error {
	for i, uid := range memberIDs {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO project_members (project_id, user_id, position) VALUES (?, ?, ?)`),
			projectID, uid, i)
		if err != nil {
			return translate(err, "insert project member")
		}
	}
	return nil
}

// GetProject returns the project with id and its members
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if err != nil {
		return nil, translate(err, "get project")
	}
	projects := []model.Project{row.model()}
	if err := s.loadMembers(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// ListProjects returns the projects userID owns or belongs to, newest first
func (s *Store) ListProjects(ctx context.Context, userID string, f store.ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE (owner_id = ? OR id IN (SELECT project_id FROM project_members WHERE user_id = ?))`
	args := []interface{}{userID, userID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Text != "" {
		query += ` AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`
		p := likePattern(f.Text)
		args = append(args, p, p)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	projects := make([]model.Project, len(rows))
	for i, r := range rows {
		projects[i] = r.model()
	}
	if err := s.loadMembers(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Store) loadMembers(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	index := make(map[string]int, len(projects))
	ids := make([]string, len(projects))
	for i, p := range projects {
		index[p.ID] = i
		ids[i] = p.ID
	}

	query, args, err := in(s.db, `SELECT project_id, user_id FROM project_members
		WHERE project_id IN (?) ORDER BY project_id, position`, ids)
	if err != nil {
		return err
	}
	var rows []struct {
		ProjectID string `db:"project_id"`
		UserID    string `db:"user_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "load project members")
	}
	for _, r := range rows {
		p := &projects[index[r.ProjectID]]
		p.MemberIDs = append(p.MemberIDs, r.UserID)
	}
	return nil
}

// AccessibleProjectIDs returns the ids of projects userID owns or belongs to
func (s *Store) AccessibleProjectIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(`
		SELECT id FROM projects WHERE owner_id = ?
		UNION
		SELECT project_id FROM project_members WHERE user_id = ?`), userID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "accessible project ids")
	}
	return ids, nil
}

// UpdateProject applies upd, replacing the member list when it is set
func (s *Store) UpdateProject(ctx context.Context, id string, upd store.ProjectUpdate) (*model.Project, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{store.Now()}
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *upd.Color)
	}
	if upd.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *upd.Icon)
	}
	args = append(args, id)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return translate(err, "update project")
		}
		if err := mustAffect(res, "update project"); err != nil {
			return err
		}
		if upd.MemberIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM project_members WHERE project_id = ?`), id); err != nil {
			return errors.Wrap(err, "clear project members")
		}
		return insertMembers(ctx, tx, id, *upd.MemberIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// ProjectRefs returns short projections of the projects in ids that exist
func (s *Store) ProjectRefs(ctx context.Context, ids []string) (map[string]model.ProjectRef, error) {
	out := make(map[string]model.ProjectRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := in(s.db, `SELECT id, name, status, color, icon FROM projects WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID     string `db:"id"`
		Name   string `db:"name"`
		Status string `db:"status"`
		Color  string `db:"color"`
		Icon   string `db:"icon"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "project refs")
	}
	for _, r := range rows {
		out[r.ID] = model.ProjectRef{ID: r.ID, Name: r.Name, Status: model.ProjectStatus(r.Status), Color: r.Color, Icon: r.Icon}
	}
	return out, nil
}

// ProjectTaskCounts returns total and completed task counts per project.
// Projects without tasks are absent from the result.
func (s *Store) ProjectTaskCounts(ctx context.Context, ids []string) (map[string]model.TaskCounts, error) {
	out := make(map[string]model.TaskCounts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := in(s.db, `
		SELECT project_id,
		       COUNT(*) AS total,
		       SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed
		FROM tasks
		WHERE project_id IN (?)
		GROUP BY project_id`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ProjectID string `db:"project_id"`
		Total     int64  `db:"total"`
		Completed int64  `db:"completed"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "project task counts")
	}
	for _, r := range rows {
		out[r.ProjectID] = model.TaskCounts{Total: r.Total, Completed: r.Completed}
	}
	return out, nil
}

// DeleteProjectCascade removes the project, its tasks with their comments,
// subtasks and labels, its activity entries and its member rows in one
// transaction. Nothing is removed when the project does not exist.
func (s *Store) DeleteProjectCascade(ctx context.Context, id string) (store.CascadeResult, error) {
	var result store.CascadeResult

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), id); err != nil {
			return errors.Wrap(err, "check project")
		}
		if exists == 0 {
			return errors.Wrap(store.ErrNotFound, "delete project")
		}

		const projectTasks = `SELECT id FROM tasks WHERE project_id = ?`
		steps := []struct {
			name  string
			query string
			count *int64
		}{
			{"comments", `DELETE FROM comments WHERE task_id IN (` + projectTasks + `)`, &result.Comments},
			{"subtasks", `DELETE FROM subtasks WHERE task_id IN (` + projectTasks + `)`, nil},
			{"task labels", `DELETE FROM task_labels WHERE task_id IN (` + projectTasks + `)`, nil},
			{"tasks", `DELETE FROM tasks WHERE project_id = ?`, &result.Tasks},
			{"activity", `DELETE FROM activity_logs WHERE project_id = ?`, &result.Activities},
			{"members", `DELETE FROM project_members WHERE project_id = ?`, nil},
			{"project", `DELETE FROM projects WHERE id = ?`, nil},
		}
		for _, step := range steps {
			res, err := tx.ExecContext(ctx, tx.Rebind(step.query), id)
			if err != nil {
				return errors.Wrapf(err, "delete %s", step.name)
			}
			if step.count != nil {
				n, err := res.RowsAffected()
				if err != nil {
					return errors.Wrapf(err, "delete %s", step.name)
				}
				*step.count = n
			}
		}
		return nil
	})
	if err != nil {
		return store.CascadeResult{}, err
	}
	return result, nil
}
