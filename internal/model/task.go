package model

import (
	"slices"
	"time"
)

// TaskStatus is the board column of a task. Any status may move to any other.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusInReview   TaskStatus = "in-review"
	StatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every task status in board order
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusInReview, StatusCompleted}

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

// Priority levels for tasks
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Priorities lists every priority from most to least pressing
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Rank orders priorities, 0 being the most pressing
func (p Priority) Rank() int {
	if i := slices.Index(Priorities, p); i >= 0 {
		return i
	}
	return len(Priorities)
}

// Subtask is a checklist entry inside a task
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task represents a single unit of work. ProjectID is empty for personal tasks.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	ProjectID   string     `json:"projectId,omitempty"`
	AssignedTo  string     `json:"assignedToId,omitempty"`
	CreatedBy   string     `json:"createdById"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Labels      []string   `json:"labels"`
	Tags        []string   `json:"tags"`
	Subtasks    []Subtask  `json:"subtasks"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewTask creates a new task with defaults
func NewTask(id, title, createdBy string) Task {
	now := time.Now().UTC()
	return Task{
		ID:        id,
		Title:     title,
		Status:    StatusTodo,
		Priority:  PriorityMedium,
		CreatedBy: createdBy,
		Labels:    []string{},
		Tags:      []string{},
		Subtasks:  []Subtask{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDone returns true if the task is in the completed column
func (t *Task) IsDone() bool {
	return t.Status == StatusCompleted
}

// IsOverdue returns true if the task is not completed and its due date has passed
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsDone() {
		return false
	}
	return t.DueDate.Before(now)
}

// HasAnyLabel reports whether the task carries at least one of labels
func (t *Task) HasAnyLabel(labels []string) bool {
	for _, l := range labels {
		if slices.Contains(t.Labels, l) {
			return true
		}
	}
	return false
}

// Subtask returns the subtask with the given id
func (t *Task) Subtask(id string) (*Subtask, bool) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i], true
		}
	}
	return nil, false
}
