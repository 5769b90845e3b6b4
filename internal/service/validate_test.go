package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/apperr"
)

func TestCheck_FieldNames(t *testing.T) {
	err := check(CreateTaskInput{
		Title:    "",
		Status:   "blocked",
		Subtasks: []SubtaskInput{{Title: "ok"}, {Title: ""}},
	})
	e, ok := apperr.As(err)
	require.True(t, ok)

	got := map[string]string{}
	for _, fe := range e.Fields {
		got[fe.Field] = fe.Message
	}
	assert.Equal(t, map[string]string{
		"title":             "title is required",
		"status":            "status must be one of: todo, in-progress, in-review, completed",
		"subtasks[1].title": "subtasks[1].title is required",
	}, got)
}

func TestCheck_PointerFields(t *testing.T) {
	assert.NoError(t, check(UpdateTaskInput{}))

	long := string(make([]byte, 201))
	err := check(UpdateTaskInput{Title: &long})
	e, ok := apperr.As(err)
	require.True(t, ok)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "title must be at most 200 characters", e.Fields[0].Message)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2026-05-01"`, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{`"2026-05-01T10:30"`, time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)},
		{`"2026-05-01T10:30:00+02:00"`, time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.True(t, tt.want.Equal(d.Time), "got %v", d.Time)
		})
	}

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &d))
}

func TestUpdateTaskInput_NullClears(t *testing.T) {
	var in UpdateTaskInput
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo": null, "dueDate": "2026-01-02"}`), &in))

	assert.True(t, in.AssignedTo.Set)
	assert.Nil(t, in.AssignedTo.Value)
	assert.False(t, in.Project.Set)
	require.NotNil(t, in.DueDate.Value)
	assert.Equal(t, 2, in.DueDate.Value.Day())
}
