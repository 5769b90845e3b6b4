package sqlstore

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

type commentRow struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	AuthorID  string    `db:"author_id"`
	TaskID    string    `db:"task_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r commentRow) model() model.Comment {
	return model.Comment{
		ID:        r.ID,
		Content:   r.Content,
		AuthorID:  r.AuthorID,
		TaskID:    r.TaskID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const commentColumns = `id, content, author_id, task_id, created_at, updated_at`

// CreateComment inserts c
func (s *Store) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = newID(c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = store.Now()
	}
	c.CreatedAt = store.Timestamp(c.CreatedAt)
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.Content, c.AuthorID, c.TaskID, c.CreatedAt, c.UpdatedAt,
	)
	return translate(err, "insert comment")
}

// GetComment returns the comment with id
func (s *Store) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var row commentRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+commentColumns+` FROM comments WHERE id = ?`), id)
	if err != nil {
		return nil, translate(err, "get comment")
	}
	c := row.model()
	return &c, nil
}

// ListComments returns the comments on taskID, oldest first
func (s *Store) ListComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT `+commentColumns+` FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`), taskID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	comments := make([]model.Comment, len(rows))
	for i, r := range rows {
		comments[i] = r.model()
	}
	return comments, nil
}

// DeleteComment removes the comment with id
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM comments WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "delete comment")
	}
	return mustAffect(res, "delete comment")
}
