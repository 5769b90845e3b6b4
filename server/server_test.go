package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/config"
	"github.com/existflow/taskboard/internal/store/sqlstore"
)

func TestMain(m *testing.M) {
	auth.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Stack string `json:"stack"`
}

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	st, err := sqlstore.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Environment = "test"
	cfg.RateLimit.Enabled = false
	for _, fn := range mutate {
		fn(cfg)
	}
	return &testServer{t: t, srv: New(cfg, st)}
}

func (ts *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)

	var res response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &res)
	}
	return rec, res
}

// register creates an account and returns its id and token
func (ts *testServer) register(name string) (string, string) {
	ts.t.Helper()
	rec, res := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "secret123",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	require.NoError(ts.t, json.Unmarshal(res.Data, &sess))
	return sess.User.ID, sess.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type idOnly struct {
	ID string `json:"id"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/health", "/api/health"} {
		rec, res := ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, res.Success)
		assert.Equal(t, "Server is running", res.Message)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec, res := ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "Route not found", res.Message)
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	rec, res := ts.do(http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required. Please log in.", res.Message)

	rec, res = ts.do(http.MethodGet, "/api/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token. Please log in again.", res.Message)
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.register("alice")

	rec, res := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", res.Message)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: cookie.Value})
	me := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var body struct {
		Data struct {
			User struct {
				ID       string `json:"id"`
				Password string `json:"password"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data.User.ID)
	assert.Empty(t, body.Data.User.Password)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice")

	rec, res := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", res.Message)
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t)
	rec, res := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "x", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error", res.Message)
	fields := map[string]bool{}
	for _, e := range res.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTask_SubtaskIDs(t *testing.T) {
	ts := newTestServer(t)
	_, tok := ts.register("writer")

	rec, res := ts.do(http.MethodPost, "/api/tasks", tok, map[string]interface{}{
		"title":    "checklist",
		"labels":   []string{"ops", ""},
		"subtasks": []map[string]string{{"id": "same", "title": "a"}, {"id": "same", "title": "b"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "subtasks[1].id", res.Errors[0].Field)

	rec, res = ts.do(http.MethodPost, "/api/tasks", tok, map[string]interface{}{
		"title":    "checklist",
		"labels":   []string{"ops", ""},
		"subtasks": []map[string]string{{"id": "mine", "title": "a"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[struct {
		Task struct {
			Labels   []string `json:"labels"`
			Subtasks []idOnly `json:"subtasks"`
		} `json:"task"`
	}](t, res.Data).Task
	assert.Equal(t, []string{"ops"}, first.Labels)
	require.Len(t, first.Subtasks, 1)

	// reusing another task's subtask id gets a fresh one
	rec, _ = ts.do(http.MethodPost, "/api/tasks", tok, map[string]interface{}{
		"title":    "copy",
		"subtasks": []map[string]string{{"id": first.Subtasks[0].ID, "title": "a"}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProjectTaskVisibilityFlow(t *testing.T) {
	ts := newTestServer(t)
	_, ownerTok := ts.register("owner")
	memberID, memberTok := ts.register("member")
	_, outsiderTok := ts.register("outsider")

	rec, res := ts.do(http.MethodPost, "/api/projects", ownerTok, map[string]interface{}{
		"name": "Launch", "members": []string{memberID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[struct{ Project idOnly }](t, res.Data).Project

	rec, res = ts.do(http.MethodPost, "/api/tasks", memberTok, map[string]interface{}{
		"title": "Write copy", "project": project.ID,
		"subtasks": []map[string]string{{"title": "draft"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[struct {
		Task struct {
			ID       string `json:"id"`
			Subtasks []struct {
				ID        string `json:"id"`
				Completed bool   `json:"completed"`
			} `json:"subtasks"`
		}
	}](t, res.Data).Task
	require.Len(t, task.Subtasks, 1)

	// outsiders see neither the project nor its task
	rec, res = ts.do(http.MethodGet, "/api/tasks/"+task.ID, outsiderTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have access to this task", res.Message)

	rec, res = ts.do(http.MethodGet, "/api/tasks", outsiderTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[struct{ Count int }](t, res.Data).Count)

	rec, _ = ts.do(http.MethodGet, "/api/projects/"+project.ID, outsiderTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(http.MethodPost, "/api/tasks", outsiderTok, map[string]interface{}{
		"title": "Sneak", "project": project.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// members can work on it
	rec, res = ts.do(http.MethodPatch, "/api/tasks/"+task.ID+"/subtasks/"+task.Subtasks[0].ID+"/toggle", ownerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	toggled := decode[struct {
		Task struct {
			Subtasks []struct {
				Completed bool `json:"completed"`
			} `json:"subtasks"`
		}
	}](t, res.Data).Task
	assert.True(t, toggled.Subtasks[0].Completed)

	rec, _ = ts.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", ownerTok, map[string]string{"content": "looks good"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, res = ts.do(http.MethodGet, "/api/activity/project/"+project.ID, memberTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[struct{ Activities []json.RawMessage }](t, res.Data).Activities)

	rec, _ = ts.do(http.MethodGet, "/api/activity/project/"+project.ID, outsiderTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// only the owner deletes the project
	rec, _ = ts.do(http.MethodDelete, "/api/projects/"+project.ID, memberTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, res = ts.do(http.MethodDelete, "/api/projects/"+project.ID, ownerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Project and all associated data deleted successfully", res.Message)
	removed := decode[struct {
		Deleted struct {
			Tasks    int64 `json:"tasks"`
			Comments int64 `json:"comments"`
		}
	}](t, res.Data).Deleted
	assert.Equal(t, int64(1), removed.Tasks)
	assert.Equal(t, int64(1), removed.Comments)

	rec, _ = ts.do(http.MethodGet, "/api/tasks/"+task.ID, memberTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityLimitParam(t *testing.T) {
	ts := newTestServer(t)
	_, tok := ts.register("alice")

	rec, res := ts.do(http.MethodGet, "/api/activity?limit=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "limit", res.Errors[0].Field)

	rec, _ = ts.do(http.MethodGet, "/api/activity?limit=5", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchAndAnalytics(t *testing.T) {
	ts := newTestServer(t)
	_, tok := ts.register("alice")
	rec, _ := ts.do(http.MethodPost, "/api/tasks", tok, map[string]string{"title": "Fix login bug", "status": "completed"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, res := ts.do(http.MethodGet, "/api/search?q=login", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hits := decode[struct {
		Projects []json.RawMessage `json:"projects"`
		Tasks    []json.RawMessage `json:"tasks"`
	}](t, res.Data)
	assert.Len(t, hits.Tasks, 1)
	assert.NotNil(t, hits.Projects)

	rec, res = ts.do(http.MethodGet, "/api/analytics", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(res.Data), "completionTrend")
}

func TestSeedEndpoint(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Seed.Enabled = false })
	rec, _ := ts.do(http.MethodPost, "/api/seed", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts = newTestServer(t)
	rec, res := ts.do(http.MethodPost, "/api/seed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[struct{ Users, Projects int }](t, res.Data)
	assert.Equal(t, 10, summary.Users)
	assert.Equal(t, 15, summary.Projects)

	rec, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user1@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 2}
	})
	body := map[string]string{"email": "nobody@example.com", "password": "x"}

	for i := 0; i < 2; i++ {
		rec, _ := ts.do(http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, res := ts.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, res.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/api/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskboard_http_requests_total")
}
