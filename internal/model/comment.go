package model

import "time"

// Comment is a note left on a task
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	TaskID    string    `json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntityType names the kind of resource an activity entry refers to
type EntityType string

const (
	EntityTask    EntityType = "task"
	EntityProject EntityType = "project"
	EntityComment EntityType = "comment"
)

// Activity actions
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionCommented = "commented"
)

// ActivityLog is an append-only audit entry. It is only removed by a project cascade.
type ActivityLog struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Action     string     `json:"action"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	EntityName string     `json:"entityName"`
	ProjectID  string     `json:"projectId,omitempty"`
	Details    string     `json:"details,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
