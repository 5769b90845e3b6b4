package model

import (
	"slices"
	"time"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// ProjectStatuses lists every project status in display order
var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectCompleted, ProjectArchived}

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	return slices.Contains(ProjectStatuses, s)
}

// Project groups tasks and carries the ownership used for access checks
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	OwnerID     string        `json:"ownerId"`
	MemberIDs   []string      `json:"memberIds"`
	Color       string        `json:"color,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HasMember reports whether userID is in the member list (the owner is not implied)
func (p *Project) HasMember(userID string) bool {
	return slices.Contains(p.MemberIDs, userID)
}

// Ref returns the short projection embedded in tasks
func (p *Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Name: p.Name, Status: p.Status, Color: p.Color, Icon: p.Icon}
}

// ProjectRef is the short projection of a project embedded in tasks and search results
type ProjectRef struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status ProjectStatus `json:"status"`
	Color  string        `json:"color,omitempty"`
	Icon   string        `json:"icon,omitempty"`
}

// TaskCounts holds per-project task totals
type TaskCounts struct {
	Total     int64 `json:"taskCount"`
	Completed int64 `json:"completedTaskCount"`
}
