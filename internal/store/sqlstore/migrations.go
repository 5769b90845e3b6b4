package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// Migrate creates the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationUsers,
		migrationProjects,
		migrationProjectsOwnerIndex,
		migrationProjectMembers,
		migrationProjectMembersUserIndex,
		migrationTasks,
		migrationTasksProjectIndex,
		migrationTasksAssigneeIndex,
		migrationTasksCreatorIndex,
		migrationTaskLabels,
		migrationTaskLabelsValueIndex,
		migrationSubtasks,
		migrationComments,
		migrationCommentsTaskIndex,
		migrationActivityLogs,
		migrationActivityProjectIndex,
		migrationActivityUserIndex,
	}

	ts := "TIMESTAMPTZ"
	if s.driver == SQLite {
		ts = "TIMESTAMP"
	}

	for i, m := range migrations {
		if _, err := s.db.ExecContext(ctx, strings.ReplaceAll(m, "{{timestamp}}", ts)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    avatar TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'member',
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL
)`

const migrationProjects = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    owner_id TEXT NOT NULL REFERENCES users(id),
    color TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL
)`

const migrationProjectsOwnerIndex = `CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`

const migrationProjectMembers = `
CREATE TABLE IF NOT EXISTS project_members (
    project_id TEXT NOT NULL REFERENCES projects(id),
    user_id TEXT NOT NULL REFERENCES users(id),
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (project_id, user_id)
)`

const migrationProjectMembersUserIndex = `CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id)`

const migrationTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'todo',
    priority TEXT NOT NULL DEFAULT 'medium',
    project_id TEXT REFERENCES projects(id),
    assigned_to TEXT REFERENCES users(id),
    created_by TEXT NOT NULL REFERENCES users(id),
    due_date {{timestamp}},
    position INTEGER NOT NULL DEFAULT 0,
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL
)`

const migrationTasksProjectIndex = `CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`

const migrationTasksAssigneeIndex = `CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to)`

const migrationTasksCreatorIndex = `CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(created_by)`

// kind is 'label' or 'tag'
const migrationTaskLabels = `
CREATE TABLE IF NOT EXISTS task_labels (
    task_id TEXT NOT NULL REFERENCES tasks(id),
    kind TEXT NOT NULL,
    value TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (task_id, kind, position)
)`

const migrationTaskLabelsValueIndex = `CREATE INDEX IF NOT EXISTS idx_task_labels_value ON task_labels(kind, value)`

const migrationSubtasks = `
CREATE TABLE IF NOT EXISTS subtasks (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL REFERENCES tasks(id),
    title TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    position INTEGER NOT NULL
)`

const migrationComments = `
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    author_id TEXT NOT NULL REFERENCES users(id),
    task_id TEXT NOT NULL REFERENCES tasks(id),
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL
)`

const migrationCommentsTaskIndex = `CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id)`

// project_id has no foreign key: the entry for a project deletion outlives the project
const migrationActivityLogs = `
CREATE TABLE IF NOT EXISTS activity_logs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    action TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    entity_name TEXT NOT NULL DEFAULT '',
    project_id TEXT,
    details TEXT NOT NULL DEFAULT '',
    created_at {{timestamp}} NOT NULL
)`

const migrationActivityProjectIndex = `CREATE INDEX IF NOT EXISTS idx_activity_project ON activity_logs(project_id, created_at)`

const migrationActivityUserIndex = `CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_logs(user_id, created_at)`
