package sqlstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustProject(t *testing.T, s *Store, id, owner string, members ...string) *model.Project {
	t.Helper()
	p := &model.Project{ID: id, Name: "Project " + id, OwnerID: owner, MemberIDs: members}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func mustTask(t *testing.T, s *Store, task model.Task) *model.Task {
	t.Helper()
	if task.Title == "" {
		task.Title = "Task " + task.ID
	}
	require.NoError(t, s.CreateTask(context.Background(), &task))
	return &task
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice := mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, model.RoleMember, got.Role)

	err = s.CreateUser(ctx, &model.User{Name: "Dup", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	name := "Alice A."
	updated, err := s.UpdateUser(ctx, "alice", store.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", updated.Name)

	email := "bob@example.com"
	_, err = s.UpdateUser(ctx, "alice", store.UserUpdate{Email: &email})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.SetPassword(ctx, "alice", "new-hash"))
	got, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	users, err := s.ListUsers(ctx, store.UserFilter{Text: "BOB"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].ID)

	users, err = s.ListUsers(ctx, store.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, []string{users[0].ID, users[1].ID})

	sums, err := s.UserSummaries(ctx, []string{"alice", "ghost"})
	require.NoError(t, err)
	assert.Len(t, sums, 1)
	assert.Equal(t, "Alice A.", sums["alice"].Name)
}

func TestListUsers_EscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "plain")
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "pct", Name: "100% done", Email: "pct@example.com", PasswordHash: "x"}))

	users, err := s.ListUsers(ctx, store.UserFilter{Text: "%"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "pct", users[0].ID)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, u := range []string{"owner", "m1", "m2", "stranger"} {
		mustUser(t, s, u)
	}

	p := mustProject(t, s, "p1", "owner", "m1", "m2")
	mustProject(t, s, "p2", "stranger")

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, got.MemberIDs)
	assert.Equal(t, model.ProjectActive, got.Status)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

	for _, u := range []string{"owner", "m1"} {
		list, err := s.ListProjects(ctx, u, store.ProjectFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1, u)
		assert.Equal(t, "p1", list[0].ID)

		pids, err := s.AccessibleProjectIDs(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, pids)
	}

	members := []string{"m2"}
	status := model.ProjectCompleted
	updated, err := s.UpdateProject(ctx, "p1", store.ProjectUpdate{MemberIDs: &members, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, updated.MemberIDs)
	assert.Equal(t, model.ProjectCompleted, updated.Status)

	pids, err := s.AccessibleProjectIDs(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, pids)

	list, err := s.ListProjects(ctx, "owner", store.ProjectFilter{Status: model.ProjectActive})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.UpdateProject(ctx, "missing", store.ProjectUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	refs, err := s.ProjectRefs(ctx, []string{"p1", "p2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, "Project p2", refs["p2"].Name)
}

func TestProjectTaskCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustProject(t, s, "p1", "u")
	mustProject(t, s, "p2", "u")
	mustTask(t, s, model.Task{ID: "t1", ProjectID: "p1", CreatedBy: "u"})
	mustTask(t, s, model.Task{ID: "t2", ProjectID: "p1", CreatedBy: "u", Status: model.StatusCompleted})
	mustTask(t, s, model.Task{ID: "t3", ProjectID: "p1", CreatedBy: "u", Status: model.StatusCompleted})

	counts, err := s.ProjectTaskCounts(ctx, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, model.TaskCounts{Total: 3, Completed: 2}, counts["p1"])
	assert.Equal(t, model.TaskCounts{}, counts["p2"])
}

func TestTasks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustUser(t, s, "a")
	mustProject(t, s, "p1", "u")

	due := time.Date(2026, 4, 1, 17, 30, 0, 0, time.UTC)
	created := mustTask(t, s, model.Task{
		ID:         "t1",
		Title:      "Ship it",
		ProjectID:  "p1",
		AssignedTo: "a",
		CreatedBy:  "u",
		Priority:   model.PriorityUrgent,
		DueDate:    &due,
		Labels:     []string{"release", "backend"},
		Tags:       []string{"q2"},
		Subtasks:   []model.Subtask{{Title: "write"}, {Title: "review", Completed: true}},
	})
	require.NotEmpty(t, created.Subtasks[0].ID)

	got, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Ship it", got.Title)
	assert.Equal(t, model.StatusTodo, got.Status)
	assert.Equal(t, model.PriorityUrgent, got.Priority)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, "a", got.AssignedTo)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, []string{"release", "backend"}, got.Labels)
	assert.Equal(t, []string{"q2"}, got.Tags)
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, created.Subtasks, got.Subtasks)

	personal := mustTask(t, s, model.Task{ID: "t2", CreatedBy: "u"})
	got, err = s.GetTask(ctx, personal.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProjectID)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, []string{}, got.Labels)
	assert.Equal(t, []model.Subtask{}, got.Subtasks)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustUser(t, s, "a")
	due := base
	mustTask(t, s, model.Task{ID: "t1", CreatedBy: "u", AssignedTo: "a", DueDate: &due, Labels: []string{"x"}})

	status := model.StatusInReview
	labels := []string{"y", "z"}
	got, err := s.UpdateTask(ctx, "t1", store.TaskUpdate{
		Status:     &status,
		AssignedTo: model.Null[string](),
		DueDate:    model.Null[time.Time](),
		Labels:     &labels,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInReview, got.Status)
	assert.Empty(t, got.AssignedTo)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, []string{"y", "z"}, got.Labels)

	title := "Renamed"
	got, err = s.UpdateTask(ctx, "t1", store.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, model.StatusInReview, got.Status, "unset fields are kept")
	assert.Equal(t, []string{"y", "z"}, got.Labels)

	_, err = s.UpdateTask(ctx, "missing", store.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleSubtask_FlipsOnlyOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustTask(t, s, model.Task{ID: "t1", CreatedBy: "u", Subtasks: []model.Subtask{
		{ID: "s1", Title: "one"},
		{ID: "s2", Title: "two", Completed: true},
		{ID: "s3", Title: "three"},
	}})

	got, err := s.ToggleSubtask(ctx, "t1", "s2")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, completion(got))

	got, err = s.ToggleSubtask(ctx, "t1", "s3")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true}, completion(got))

	_, err = s.ToggleSubtask(ctx, "t1", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func completion(t *model.Task) []bool {
	out := make([]bool, len(t.Subtasks))
	for i, st := range t.Subtasks {
		out[i] = st.Completed
	}
	return out
}

func TestDeleteTask_RemovesComments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustTask(t, s, model.Task{ID: "t1", CreatedBy: "u", Subtasks: []model.Subtask{{Title: "s"}}, Labels: []string{"l"}})
	require.NoError(t, s.CreateComment(ctx, &model.Comment{ID: "c1", Content: "hi", AuthorID: "u", TaskID: "t1"}))

	require.NoError(t, s.DeleteTask(ctx, "t1"))

	_, err := s.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetComment(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, "t1"), store.ErrNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustTask(t, s, model.Task{ID: "t1", CreatedBy: "u"})

	require.NoError(t, s.CreateComment(ctx, &model.Comment{ID: "c2", Content: "second", AuthorID: "u", TaskID: "t1", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.CreateComment(ctx, &model.Comment{ID: "c1", Content: "first", AuthorID: "u", TaskID: "t1", CreatedAt: base}))

	list, err := s.ListComments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)

	require.NoError(t, s.DeleteComment(ctx, "c1"))
	assert.ErrorIs(t, s.DeleteComment(ctx, "c1"), store.ErrNotFound)
}

func TestListTasks_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	for i := range 5 {
		mustTask(t, s, model.Task{ID: fmt.Sprintf("t%d", i), CreatedBy: "u", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	tasks, err := s.ListTasks(ctx, access.TaskQuery{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"t4", "t3", "t2"}, ids(tasks))

	n, err := s.CountTasks(ctx, access.TaskQuery{Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

// The SQL translation of a task query returns exactly the tasks the
// reference predicate accepts.
func TestListTasks_MatchesReferencePredicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rng := rand.New(rand.NewPCG(1, 2))

	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		mustUser(t, s, u)
	}
	projects := []*model.Project{
		mustProject(t, s, "p1", "u1", "u2"),
		mustProject(t, s, "p2", "u3"),
		mustProject(t, s, "p3", "u4", "u1"),
	}
	labels := []string{"bug", "feature", "docs"}
	words := []string{"Deploy API", "fix login", "Write docs", "refactor store", "100% coverage"}

	var all []model.Task
	for i := range 80 {
		task := model.Task{
			ID:          fmt.Sprintf("t%02d", i),
			Title:       words[rng.IntN(len(words))],
			Description: words[rng.IntN(len(words))],
			Status:      model.TaskStatuses[rng.IntN(len(model.TaskStatuses))],
			Priority:    model.Priorities[rng.IntN(len(model.Priorities))],
			CreatedBy:   users[rng.IntN(len(users))],
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			Labels:      []string{},
		}
		if rng.IntN(4) > 0 {
			task.ProjectID = projects[rng.IntN(len(projects))].ID
		}
		if rng.IntN(2) == 0 {
			task.AssignedTo = users[rng.IntN(len(users))]
		}
		for _, l := range labels {
			if rng.IntN(3) == 0 {
				task.Labels = append(task.Labels, l)
			}
		}
		all = append(all, *mustTask(t, s, task))
	}

	filters := []access.TaskFilter{
		{},
		{Status: model.StatusTodo},
		{Priority: model.PriorityHigh, ProjectID: "p1"},
		{AssignedTo: "u2"},
		{Involving: "u3"},
		{Labels: []string{"bug", "docs"}},
		{Text: "DOCS"},
		{Text: "%"},
		{Text: "login", Labels: []string{"feature"}},
	}

	for _, u := range users {
		pids, err := s.AccessibleProjectIDs(ctx, u)
		require.NoError(t, err)
		for _, scope := range []*access.TaskScope{nil, access.NewTaskScope(u, pids)} {
			for _, f := range filters {
				q := access.TaskQuery{Scope: scope, Filter: f}

				var want []string
				for i := len(all) - 1; i >= 0; i-- {
					if q.Matches(&all[i]) {
						want = append(want, all[i].ID)
					}
				}

				got, err := s.ListTasks(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, want, nilIfEmpty(ids(got)), "user=%s scoped=%v filter=%+v", u, scope != nil, f)

				n, err := s.CountTasks(ctx, q)
				require.NoError(t, err)
				assert.EqualValues(t, len(want), n)
			}
		}
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestDeleteProjectCascade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "owner")
	mustUser(t, s, "m")
	mustProject(t, s, "doomed", "owner", "m")
	mustProject(t, s, "kept", "owner")

	mustTask(t, s, model.Task{ID: "d1", ProjectID: "doomed", CreatedBy: "owner", Labels: []string{"a"}, Subtasks: []model.Subtask{{Title: "x"}}})
	mustTask(t, s, model.Task{ID: "d2", ProjectID: "doomed", CreatedBy: "m"})
	mustTask(t, s, model.Task{ID: "k1", ProjectID: "kept", CreatedBy: "owner"})
	mustTask(t, s, model.Task{ID: "free", CreatedBy: "owner"})

	for i, taskID := range []string{"d1", "d1", "d2", "k1", "free"} {
		require.NoError(t, s.CreateComment(ctx, &model.Comment{ID: fmt.Sprintf("c%d", i), Content: "c", AuthorID: "owner", TaskID: taskID}))
	}
	for i, projectID := range []string{"doomed", "doomed", "kept", ""} {
		require.NoError(t, s.RecordActivity(ctx, &model.ActivityLog{
			ID: fmt.Sprintf("a%d", i), UserID: "owner", Action: model.ActionCreated,
			EntityType: model.EntityTask, EntityID: "x", ProjectID: projectID,
		}))
	}

	res, err := s.DeleteProjectCascade(ctx, "doomed")
	require.NoError(t, err)
	assert.Equal(t, store.CascadeResult{Tasks: 2, Comments: 3, Activities: 2}, res)

	_, err = s.GetProject(ctx, "doomed")
	assert.ErrorIs(t, err, store.ErrNotFound)
	for _, id := range []string{"d1", "d2"} {
		_, err = s.GetTask(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	for _, id := range []string{"k1", "free"} {
		_, err = s.GetTask(ctx, id)
		assert.NoError(t, err)
	}
	for _, id := range []string{"c3", "c4"} {
		_, err = s.GetComment(ctx, id)
		assert.NoError(t, err)
	}

	activity, err := s.ListActivity(ctx, store.ActivityFilter{UserID: "owner", ProjectIDs: []string{"kept"}})
	require.NoError(t, err)
	assert.Len(t, activity, 2)

	pids, err := s.AccessibleProjectIDs(ctx, "m")
	require.NoError(t, err)
	assert.Empty(t, pids)

	_, err = s.DeleteProjectCascade(ctx, "doomed")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListActivity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "me")
	mustUser(t, s, "other")

	entries := []model.ActivityLog{
		{ID: "a1", UserID: "me", ProjectID: "", CreatedAt: base},
		{ID: "a2", UserID: "other", ProjectID: "mine", CreatedAt: base.Add(time.Minute)},
		{ID: "a3", UserID: "other", ProjectID: "theirs", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "a4", UserID: "me", ProjectID: "theirs", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range entries {
		entries[i].Action = model.ActionUpdated
		entries[i].EntityType = model.EntityProject
		entries[i].EntityID = "e"
		require.NoError(t, s.RecordActivity(ctx, &entries[i]))
	}

	feed, err := s.ListActivity(ctx, store.ActivityFilter{UserID: "me", ProjectIDs: []string{"mine"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a2", "a1"}, activityIDs(feed))

	feed, err = s.ListActivity(ctx, store.ActivityFilter{UserID: "me"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a1"}, activityIDs(feed))

	feed, err = s.ListActivity(ctx, store.ActivityFilter{ProjectID: "theirs", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4"}, activityIDs(feed))
}

func activityIDs(entries []model.ActivityLog) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustUser(t, s, "u")
	mustProject(t, s, "p", "u", "u")
	mustTask(t, s, model.Task{ID: "t", ProjectID: "p", CreatedBy: "u", Labels: []string{"l"}})
	require.NoError(t, s.CreateComment(ctx, &model.Comment{Content: "c", AuthorID: "u", TaskID: "t"}))
	require.NoError(t, s.RecordActivity(ctx, &model.ActivityLog{UserID: "u", Action: "created", EntityType: model.EntityTask, EntityID: "t"}))

	require.NoError(t, s.Reset(ctx))

	users, err := s.ListUsers(ctx, store.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
	n, err := s.CountTasks(ctx, access.TaskQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", sqliteDSN("/tmp/x.db"))
	assert.Equal(t, "file:a?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", sqliteDSN("file:a?mode=memory"))
	assert.Equal(t, "file:a?_pragma=foreign_keys(1)", sqliteDSN("file:a?_pragma=foreign_keys(1)"))
}
