package mongostore

import (
	"time"

	"github.com/existflow/taskboard/internal/model"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	Avatar       string    `bson:"avatar,omitempty"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newUserDoc(u *model.User) userDoc {
	return userDoc{
		ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash,
		Avatar: u.Avatar, Role: string(u.Role), CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) model() model.User {
	return model.User{
		ID: d.ID, Name: d.Name, Email: d.Email, PasswordHash: d.PasswordHash,
		Avatar: d.Avatar, Role: model.Role(d.Role), CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type projectDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	Owner       string    `bson:"owner"`
	Members     []string  `bson:"members"`
	Color       string    `bson:"color,omitempty"`
	Icon        string    `bson:"icon,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func newProjectDoc(p *model.Project) projectDoc {
	members := p.MemberIDs
	if members == nil {
		members = []string{}
	}
	return projectDoc{
		ID: p.ID, Name: p.Name, Description: p.Description, Status: string(p.Status),
		Owner: p.OwnerID, Members: members, Color: p.Color, Icon: p.Icon,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (d projectDoc) model() model.Project {
	members := d.Members
	if members == nil {
		members = []string{}
	}
	return model.Project{
		ID: d.ID, Name: d.Name, Description: d.Description, Status: model.ProjectStatus(d.Status),
		OwnerID: d.Owner, MemberIDs: members, Color: d.Color, Icon: d.Icon,
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type subtaskDoc struct {
	ID        string `bson:"_id"`
	Title     string `bson:"title"`
	Completed bool   `bson:"completed"`
}

type taskDoc struct {
	ID          string       `bson:"_id"`
	Title       string       `bson:"title"`
	Description string       `bson:"description"`
	Status      string       `bson:"status"`
	Priority    string       `bson:"priority"`
	Project     string       `bson:"project,omitempty"`
	AssignedTo  string       `bson:"assignedTo,omitempty"`
	CreatedBy   string       `bson:"createdBy"`
	DueDate     *time.Time   `bson:"dueDate,omitempty"`
	Labels      []string     `bson:"labels"`
	Tags        []string     `bson:"tags"`
	Subtasks    []subtaskDoc `bson:"subtasks"`
	Order       int          `bson:"order"`
	CreatedAt   time.Time    `bson:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt"`
}

func newSubtaskDocs(subtasks []model.Subtask) []subtaskDoc {
	docs := make([]subtaskDoc, len(subtasks))
	for i, st := range subtasks {
		docs[i] = subtaskDoc{ID: st.ID, Title: st.Title, Completed: st.Completed}
	}
	return docs
}

func newTaskDoc(t *model.Task) taskDoc {
	return taskDoc{
		ID: t.ID, Title: t.Title, Description: t.Description,
		Status: string(t.Status), Priority: string(t.Priority),
		Project: t.ProjectID, AssignedTo: t.AssignedTo, CreatedBy: t.CreatedBy,
		DueDate: t.DueDate, Labels: t.Labels, Tags: t.Tags, Subtasks: newSubtaskDocs(t.Subtasks),
		Order: t.Order, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (d taskDoc) model() model.Task {
	t := model.Task{
		ID: d.ID, Title: d.Title, Description: d.Description,
		Status: model.TaskStatus(d.Status), Priority: model.Priority(d.Priority),
		ProjectID: d.Project, AssignedTo: d.AssignedTo, CreatedBy: d.CreatedBy,
		Labels: d.Labels, Tags: d.Tags, Subtasks: make([]model.Subtask, len(d.Subtasks)),
		Order: d.Order, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	for i, st := range d.Subtasks {
		t.Subtasks[i] = model.Subtask{ID: st.ID, Title: st.Title, Completed: st.Completed}
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	Author    string    `bson:"author"`
	Task      string    `bson:"task"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d commentDoc) model() model.Comment {
	return model.Comment{
		ID: d.ID, Content: d.Content, AuthorID: d.Author, TaskID: d.Task,
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type activityDoc struct {
	ID         string    `bson:"_id"`
	User       string    `bson:"user"`
	Action     string    `bson:"action"`
	EntityType string    `bson:"entityType"`
	EntityID   string    `bson:"entityId"`
	EntityName string    `bson:"entityName"`
	Project    string    `bson:"project,omitempty"`
	Details    string    `bson:"details,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func (d activityDoc) model() model.ActivityLog {
	return model.ActivityLog{
		ID: d.ID, UserID: d.User, Action: d.Action, EntityType: model.EntityType(d.EntityType),
		EntityID: d.EntityID, EntityName: d.EntityName, ProjectID: d.Project, Details: d.Details,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
