package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

const (
	kindLabel = "label"
	kindTag   = "tag"
)

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	Priority    string         `db:"priority"`
	ProjectID   sql.NullString `db:"project_id"`
	AssignedTo  sql.NullString `db:"assigned_to"`
	CreatedBy   string         `db:"created_by"`
	DueDate     sql.NullTime   `db:"due_date"`
	Position    int            `db:"position"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r taskRow) model() model.Task {
	t := model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      model.TaskStatus(r.Status),
		Priority:    model.Priority(r.Priority),
		ProjectID:   r.ProjectID.String,
		AssignedTo:  r.AssignedTo.String,
		CreatedBy:   r.CreatedBy,
		Order:       r.Position,
		Labels:      []string{},
		Tags:        []string{},
		Subtasks:    []model.Subtask{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		t.DueDate = &due
	}
	return t
}

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.project_id, t.assigned_to,
	t.created_by, t.due_date, t.position, t.created_at, t.updated_at`

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: store.Timestamp(*t), Valid: true}
}

// CreateTask inserts t with its labels, tags and subtasks
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	t.ID = newID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = store.Now()
	}
	t.CreatedAt = store.Timestamp(t.CreatedAt)
	if t.UpdatedAt.IsZero() || t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
	t.UpdatedAt = store.Timestamp(t.UpdatedAt)
	if t.Status == "" {
		t.Status = model.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.DueDate != nil {
		due := store.Timestamp(*t.DueDate)
		t.DueDate = &due
	}
	normalizeCollections(t)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO tasks (id, title, description, status, priority, project_id, assigned_to,
				created_by, due_date, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			t.ID, t.Title, t.Description, string(t.Status), string(t.Priority),
			nullString(t.ProjectID), nullString(t.AssignedTo), t.CreatedBy,
			nullTime(t.DueDate), t.Order, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return translate(err, "insert task")
		}
		if err := insertLabels(ctx, tx, t.ID, kindLabel, t.Labels); err != nil {
			return err
		}
		if err := insertLabels(ctx, tx, t.ID, kindTag, t.Tags); err != nil {
			return err
		}
		return insertSubtasks(ctx, tx, t.ID, t.Subtasks)
	})
}

func normalizeCollections(t *model.Task) {
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []model.Subtask{}
	}
	for i := range t.Subtasks {
		t.Subtasks[i].ID = newID(t.Subtasks[i].ID)
	}
}

func insertLabels(ctx context.Context, tx *sqlx.Tx, taskID, kind string, values []string) error {
	for i, v := range values {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO task_labels (task_id, kind, value, position) VALUES (?, ?, ?, ?)`),
			taskID, kind, v, i)
		if err != nil {
			return translate(err, "insert task "+kind)
		}
	}
	return nil
}

func insertSubtasks(ctx context.Context, tx *sqlx.Tx, taskID string, subtasks []model.Subtask) error {
	for i, st := range subtasks {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO subtasks (id, task_id, title, completed, position) VALUES (?, ?, ?, ?, ?)`),
			st.ID, taskID, st.Title, st.Completed, i)
		if err != nil {
			return translate(err, "insert subtask")
		}
	}
	return nil
}

// GetTask returns the task with id
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`), id)
	if err != nil {
		return nil, translate(err, "get task")
	}
	tasks := []model.Task{row.model()}
	if err := s.loadTaskChildren(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// taskWhere translates q into a WHERE clause over tasks aliased as t.
// It mirrors access.TaskQuery.Matches.
func taskWhere(q access.TaskQuery) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if sc := q.Scope; sc != nil {
		union := []string{"t.project_id IS NULL", "t.created_by = ?", "t.assigned_to = ?"}
		args = append(args, sc.UserID, sc.UserID)
		if len(sc.ProjectIDs) > 0 {
			union = append(union, "t.project_id IN (?)")
			args = append(args, sc.ProjectIDs)
		}
		conds = append(conds, "("+strings.Join(union, " OR ")+")")
	}

	f := q.Filter
	if f.ProjectID != "" {
		conds = append(conds, "t.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		conds = append(conds, "t.priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.AssignedTo != "" {
		conds = append(conds, "t.assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if f.Involving != "" {
		conds = append(conds, "(t.created_by = ? OR t.assigned_to = ?)")
		args = append(args, f.Involving, f.Involving)
	}
	if len(f.Labels) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM task_labels l
			WHERE l.task_id = t.id AND l.kind = 'label' AND l.value IN (?))`)
		args = append(args, f.Labels)
	}
	if f.Text != "" {
		conds = append(conds, `(LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(t.description) LIKE ? ESCAPE '\')`)
		p := likePattern(f.Text)
		args = append(args, p, p)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTasks returns the tasks matching q, newest first
func (s *Store) ListTasks(ctx context.Context, q access.TaskQuery) ([]model.Task, error) {
	where, args := taskWhere(q)
	query := `SELECT ` + taskColumns + ` FROM tasks t` + where + ` ORDER BY t.created_at DESC, t.id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	query, args, err := in(s.db, query, args...)
	if err != nil {
		return nil, err
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	tasks := make([]model.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.model()
	}
	if err := s.loadTaskChildren(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountTasks counts the tasks matching q, ignoring its limit
func (s *Store) CountTasks(ctx context.Context, q access.TaskQuery) (int64, error) {
	where, args := taskWhere(q)
	query, args, err := in(s.db, `SELECT COUNT(*) FROM tasks t`+where, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, errors.Wrap(err, "count tasks")
	}
	return n, nil
}

func (s *Store) loadTaskChildren(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	index := make(map[string]int, len(tasks))
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
		ids[i] = t.ID
	}

	query, args, err := in(s.db, `SELECT task_id, kind, value FROM task_labels
		WHERE task_id IN (?) ORDER BY task_id, kind, position`, ids)
	if err != nil {
		return err
	}
	var labels []struct {
		TaskID string `db:"task_id"`
		Kind   string `db:"kind"`
		Value  string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &labels, query, args...); err != nil {
		return errors.Wrap(err, "load task labels")
	}
	for _, l := range labels {
		t := &tasks[index[l.TaskID]]
		if l.Kind == kindTag {
			t.Tags = append(t.Tags, l.Value)
		} else {
			t.Labels = append(t.Labels, l.Value)
		}
	}

	query, args, err = in(s.db, `SELECT id, task_id, title, completed FROM subtasks
		WHERE task_id IN (?) ORDER BY task_id, position`, ids)
	if err != nil {
		return err
	}
	var subtasks []struct {
		ID        string `db:"id"`
		TaskID    string `db:"task_id"`
		Title     string `db:"title"`
		Completed bool   `db:"completed"`
	}
	if err := s.db.SelectContext(ctx, &subtasks, query, args...); err != nil {
		return errors.Wrap(err, "load subtasks")
	}
	for _, st := range subtasks {
		t := &tasks[index[st.TaskID]]
		t.Subtasks = append(t.Subtasks, model.Subtask{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	return nil
}

// UpdateTask applies upd. Label, tag and subtask lists are replaced whole.
func (s *Store) UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) (*model.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{store.Now()}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.Priority != nil {
		add("priority", string(*upd.Priority))
	}
	if upd.ProjectID.Set {
		add("project_id", optionalString(upd.ProjectID.Value))
	}
	if upd.AssignedTo.Set {
		add("assigned_to", optionalString(upd.AssignedTo.Value))
	}
	if upd.DueDate.Set {
		add("due_date", nullTime(upd.DueDate.Value))
	}
	if upd.Order != nil {
		add("position", *upd.Order)
	}
	args = append(args, id)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return translate(err, "update task")
		}
		if err := mustAffect(res, "update task"); err != nil {
			return err
		}
		if upd.Labels != nil {
			if err := replaceLabels(ctx, tx, id, kindLabel, *upd.Labels); err != nil {
				return err
			}
		}
		if upd.Tags != nil {
			if err := replaceLabels(ctx, tx, id, kindTag, *upd.Tags); err != nil {
				return err
			}
		}
		if upd.Subtasks != nil {
			subtasks := append([]model.Subtask(nil), *upd.Subtasks...)
			for i := range subtasks {
				subtasks[i].ID = newID(subtasks[i].ID)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM subtasks WHERE task_id = ?`), id); err != nil {
				return errors.Wrap(err, "clear subtasks")
			}
			return insertSubtasks(ctx, tx, id, subtasks)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

func replaceLabels(ctx context.Context, tx *sqlx.Tx, taskID, kind string, values []string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_labels WHERE task_id = ? AND kind = ?`), taskID, kind); err != nil {
		return errors.Wrapf(err, "clear task %ss", kind)
	}
	return insertLabels(ctx, tx, taskID, kind, values)
}

// ToggleSubtask flips one subtask with a single UPDATE; sibling subtasks are untouched
func (s *Store) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*model.Task, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE subtasks SET completed = NOT completed WHERE id = ? AND task_id = ?`),
			subtaskID, taskID)
		if err != nil {
			return errors.Wrap(err, "toggle subtask")
		}
		if err := mustAffect(res, "toggle subtask"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE tasks SET updated_at = ? WHERE id = ?`), store.Now(), taskID)
		return errors.Wrap(err, "touch task")
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, taskID)
}

// DeleteTask removes the task with its comments, subtasks and labels
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, q := range []string{
			`DELETE FROM comments WHERE task_id = ?`,
			`DELETE FROM subtasks WHERE task_id = ?`,
			`DELETE FROM task_labels WHERE task_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
				return errors.Wrap(err, "delete task children")
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
		if err != nil {
			return errors.Wrap(err, "delete task")
		}
		return mustAffect(res, "delete task")
	})
}
