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

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Avatar       string    `db:"avatar"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) model() model.User {
	return model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Avatar:       r.Avatar,
		Role:         model.Role(r.Role),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const userColumns = `id, name, email, password_hash, avatar, role, created_at, updated_at`

// CreateUser inserts u, filling ID and timestamps when empty
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = store.Now()
	}
	u.CreatedAt = store.Timestamp(u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	if u.Role == "" {
		u.Role = model.RoleMember
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	return translate(err, "insert user")
}

// GetUser returns the user with id
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, translate(err, "get user")
	}
	u := row.model()
	return &u, nil
}

// GetUserByEmail returns the user with email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	u := row.model()
	return &u, nil
}

// UpdateUser applies upd and returns the updated user
func (s *Store) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{store.Now()}
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *upd.Avatar)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, translate(err, "update user")
	}
	if err := mustAffect(res, "update user"); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// SetPassword replaces the password hash of id
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		hash, store.Now(), id)
	if err != nil {
		return translate(err, "set password")
	}
	return mustAffect(res, "set password")
}

// ListUsers returns users sorted by name
func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if f.Text != "" {
		query += ` WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`
		p := likePattern(f.Text)
		args = append(args, p, p)
	}
	query += ` ORDER BY name ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	users := make([]model.User, len(rows))
	for i, r := range rows {
		users[i] = r.model()
	}
	return users, nil
}

// UserSummaries returns the public projection of the users in ids that exist
func (s *Store) UserSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	out := make(map[string]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	return out, summariesInto(ctx, s.db, ids, out)
}

func summariesInto(ctx context.Context, q sqlx.ExtContext, ids []string, out map[string]model.UserSummary) error {
	query, args, err := in(q, `SELECT id, name, email, avatar FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	var rows []struct {
		ID     string `db:"id"`
		Name   string `db:"name"`
		Email  string `db:"email"`
		Avatar string `db:"avatar"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return errors.Wrap(err, "user summaries")
	}
	for _, r := range rows {
		out[r.ID] = model.UserSummary{ID: r.ID, Name: r.Name, Email: r.Email, Avatar: r.Avatar}
	}
	return nil
}
