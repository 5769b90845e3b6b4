package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/config"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
	"github.com/existflow/taskboard/internal/store/sqlstore"
	"github.com/existflow/taskboard/server"
)

func TestMain(m *testing.M) {
	auth.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newClient(t *testing.T) (*Client, string) {
	t.Helper()
	ctx := context.Background()
	st, err := sqlstore.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Environment = "test"
	cfg.RateLimit.Enabled = false
	api := httptest.NewServer(server.New(cfg, st).Router())
	t.Cleanup(api.Close)

	path := filepath.Join(t.TempDir(), "client.json")
	c, err := New(path)
	require.NoError(t, err)
	require.NoError(t, c.SetServer(api.URL))
	return c, path
}

func TestSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, s.ServerURL)
	assert.Empty(t, s.Token)
}

func TestSettings_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestClient_RequiresLogin(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Tasks(context.Background(), TaskFilter{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClient_SessionPersists(t *testing.T) {
	c, path := newClient(t)
	ctx := context.Background()

	user, err := c.Register(ctx, service.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, c.IsLoggedIn())

	reopened, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, user.ID, reopened.Settings().UserID)

	me, err := reopened.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	require.NoError(t, reopened.Logout())
	assert.False(t, reopened.IsLoggedIn())
}

func TestClient_LoginFailure(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Login(context.Background(), service.LoginInput{Email: "nobody@example.com", Password: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestClient_ValidationErrorFields(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Register(context.Background(), service.RegisterInput{Name: "x", Email: "bad", Password: "1"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.NotEmpty(t, apiErr.Fields)
	assert.Contains(t, apiErr.Error(), "Validation error: ")
}

func TestClient_ProjectAndTaskLifecycle(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()
	_, err := c.Register(ctx, service.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	p, err := c.CreateProject(ctx, service.CreateProjectInput{Name: "Launch"})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectActive, p.Status)

	task, err := c.CreateTask(ctx, service.CreateTaskInput{
		Title:    "Write copy",
		Project:  p.ID,
		Labels:   []string{"docs"},
		Subtasks: []service.SubtaskInput{{Title: "draft"}},
	})
	require.NoError(t, err)
	require.NotNil(t, task.Project)
	assert.Equal(t, "Launch", task.Project.Name)

	updated, err := c.UpdateTask(ctx, task.ID, map[string]interface{}{"status": model.StatusInReview})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInReview, updated.Status)

	toggled, err := c.ToggleSubtask(ctx, task.ID, task.Subtasks[0].ID)
	require.NoError(t, err)
	assert.True(t, toggled.Subtasks[0].Completed)

	listed, err := c.Tasks(ctx, TaskFilter{Project: p.ID, Labels: []string{"docs"}})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = c.AddComment(ctx, task.ID, "first")
	require.NoError(t, err)
	comments, err := c.Comments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Ada", comments[0].Author.Name)

	hits, err := c.Search(ctx, "copy")
	require.NoError(t, err)
	assert.Len(t, hits.Tasks, 1)

	feed, err := c.Activity(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, feed)

	removed, err := c.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.Tasks)
	assert.Equal(t, int64(1), removed.Comments)

	_, err = c.Task(ctx, task.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_StaleTokenIsCleared(t *testing.T) {
	c, path := newClient(t)
	c.settings.Token = "expired"
	require.NoError(t, c.settings.Save(path))

	_, err := c.Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, c.IsLoggedIn())

	reopened, err := New(path)
	require.NoError(t, err)
	assert.False(t, reopened.IsLoggedIn())
}
