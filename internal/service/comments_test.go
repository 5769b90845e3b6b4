package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

func TestComments_AuthorOnlyDelete(t *testing.T) {
	f := newFixture(t)
	a, b := f.user("a"), f.user("b")
	p := f.project(a, b)
	task := f.task(a, p.ID, "x")

	c, err := f.svc.Comments.Create(f.ctx, b, task.ID, CommentInput{Content: "  looks good  "})
	require.NoError(t, err)
	assert.Equal(t, "looks good", c.Content)
	require.NotNil(t, c.Author)
	assert.Equal(t, b.ID, c.Author.ID)

	err = f.svc.Comments.Delete(f.ctx, a, c.ID)
	requireKind(t, err, apperr.Forbidden, "Not authorized to delete this comment")

	require.NoError(t, f.svc.Comments.Delete(f.ctx, b, c.ID))
	err = f.svc.Comments.Delete(f.ctx, b, c.ID)
	requireKind(t, err, apperr.NotFound, "Comment not found")
}

func TestComments_RequireVisibleTask(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")
	p := f.project(a)
	task := f.task(a, p.ID, "x")

	_, err := f.svc.Comments.Create(f.ctx, c, task.ID, CommentInput{Content: "hi"})
	requireKind(t, err, apperr.Forbidden, "")

	_, err = f.svc.Comments.List(f.ctx, c, task.ID)
	requireKind(t, err, apperr.Forbidden, "")

	_, err = f.svc.Comments.Create(f.ctx, a, "missing", CommentInput{Content: "hi"})
	requireKind(t, err, apperr.NotFound, "Task not found")

	_, err = f.svc.Comments.Create(f.ctx, a, task.ID, CommentInput{Content: "   "})
	requireKind(t, err, apperr.Validation, "")
}

func TestComments_ListAndActivity(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")
	p := f.project(a)
	task := f.task(a, p.ID, "x")

	for _, text := range []string{"first", "second"} {
		_, err := f.svc.Comments.Create(f.ctx, a, task.ID, CommentInput{Content: text})
		require.NoError(t, err)
	}
	list, err := f.svc.Comments.List(f.ctx, a, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)

	entries, err := f.store.ListActivity(f.ctx, store.ActivityFilter{ProjectID: p.ID, Limit: 10})
	require.NoError(t, err)
	commented := 0
	for _, e := range entries {
		if e.Action == model.ActionCommented {
			commented++
			assert.Equal(t, model.EntityComment, e.EntityType)
			assert.Equal(t, task.Title, e.EntityName)
		}
	}
	assert.Equal(t, 2, commented)
}
