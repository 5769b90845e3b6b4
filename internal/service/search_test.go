package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	f := newFixture(t)
	a, c := f.user("a"), f.user("c")

	mine, err := f.svc.Projects.Create(f.ctx, a, CreateProjectInput{Name: "Rocket launch"})
	require.NoError(t, err)
	_, err = f.svc.Projects.Create(f.ctx, c, CreateProjectInput{Name: "Secret rocket"})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		f.task(a, mine.ID, fmt.Sprintf("Rocket part %d", i))
	}

	res, err := f.svc.Search.Search(f.ctx, a, "ROCKET")
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, mine.ID, res.Projects[0].ID)
	assert.Len(t, res.Tasks, SearchLimit)

	res, err = f.svc.Search.Search(f.ctx, c, "rocket part")
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")

	res, err := f.svc.Search.Search(f.ctx, a, "   ")
	require.NoError(t, err)
	assert.NotNil(t, res.Projects)
	assert.NotNil(t, res.Tasks)
	assert.Empty(t, res.Projects)
	assert.Empty(t, res.Tasks)
}
