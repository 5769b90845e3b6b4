package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/apperr"
)

func TestFeedLimit(t *testing.T) {
	assert.Equal(t, 20, feedLimit(0, DefaultFeedLimit))
	assert.Equal(t, 30, feedLimit(-1, DefaultProjectFeedLimit))
	assert.Equal(t, 5, feedLimit(5, DefaultFeedLimit))
	assert.Equal(t, MaxFeedLimit, feedLimit(5000, DefaultFeedLimit))
}

func TestFeed_Scope(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.user("a"), f.user("b"), f.user("c")
	shared := f.project(a, b)
	f.project(c)
	f.task(c, "", "c's personal task")

	feed, err := f.svc.Activity.Feed(f.ctx, b, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, shared.ID, feed[0].EntityID)
	require.NotNil(t, feed[0].User)
	assert.Equal(t, a.ID, feed[0].User.ID)

	feed, err = f.svc.Activity.Feed(f.ctx, c, 1)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestProjectFeed(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")
	p := f.project(a)
	f.task(a, p.ID, "x")

	feed, err := f.svc.Activity.ProjectFeed(f.ctx, a, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, feed, 2)

	_, err = f.svc.Activity.ProjectFeed(f.ctx, c, p.ID, 0)
	requireKind(t, err, apperr.NotFound, "Project not found")
}
