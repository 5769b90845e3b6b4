// Package mongostore implements store.Store on MongoDB. Documents use string
// ids so records move freely between backends.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/taskboard/internal/access"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

const (
	colUsers    = "users"
	colProjects = "projects"
	colTasks    = "tasks"
	colComments = "comments"
	colActivity = "activitylogs"
)

// Store is a MongoDB backed store.Store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Open connects to uri and uses database name
func Open(ctx context.Context, uri, name string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(name)}, nil
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Migrate creates indexes
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProjects: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		colTasks: {
			{Keys: bson.D{{Key: "project", Value: 1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
			{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		},
		colComments: {
			{Keys: bson.D{{Key: "task", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colActivity: {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Reset removes every document
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range []string{colComments, colTasks, colActivity, colProjects, colUsers} {
		if _, err := s.col(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Wrapf(err, "reset %s", name)
		}
	}
	return nil
}

func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(store.ErrNotFound, what)
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(store.ErrDuplicate, what)
	}
	return errors.Wrap(err, what)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func findAll[D any](ctx context.Context, c *mongo.Collection, filter interface{}, opts *options.FindOptions, what string) ([]D, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, what)
	}
	defer cur.Close(ctx)
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, what)
	}
	return docs, nil
}

// Users

// CreateUser inserts u, filling ID and timestamps when empty
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = store.Now()
	}
	u.CreatedAt = store.Timestamp(u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	if u.Role == "" {
		u.Role = model.RoleMember
	}
	_, err := s.col(colUsers).InsertOne(ctx, newUserDoc(u))
	return translate(err, "insert user")
}

func (s *Store) getUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := s.col(colUsers).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, "get user")
	}
	u := doc.model()
	return &u, nil
}

// GetUser returns the user with id
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, bson.M{"_id": id})
}

// GetUserByEmail returns the user with email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, bson.M{"email": email})
}

// UpdateUser applies upd and returns the updated user
func (s *Store) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*model.User, error) {
	set := bson.M{"updatedAt": store.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	res, err := s.col(colUsers).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, translate(err, "update user")
	}
	if res.MatchedCount == 0 {
		return nil, errors.Wrap(store.ErrNotFound, "update user")
	}
	return s.GetUser(ctx, id)
}

// SetPassword replaces the password hash of id
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.col(colUsers).UpdateByID(ctx, id, bson.M{"$set": bson.M{"password": hash, "updatedAt": store.Now()}})
	if err != nil {
		return translate(err, "set password")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(store.ErrNotFound, "set password")
	}
	return nil
}

// ListUsers returns users sorted by name
func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	docs, err := findAll[userDoc](ctx, s.col(colUsers), userFilter(f), opts, "list users")
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(docs))
	for i, d := range docs {
		users[i] = d.model()
	}
	return users, nil
}

// UserSummaries returns the public projection of the users in ids that exist
func (s *Store) UserSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	out := make(map[string]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[userDoc](ctx, s.col(colUsers), bson.M{"_id": bson.M{"$in": ids}}, options.Find(), "user summaries")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		u := d.model()
		out[u.ID] = u.Summary()
	}
	return out, nil
}

// Projects

// CreateProject inserts p
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = store.Now()
	}
	p.CreatedAt = store.Timestamp(p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}
	_, err := s.col(colProjects).InsertOne(ctx, newProjectDoc(p))
	return translate(err, "insert project")
}

// GetProject returns the project with id
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var doc projectDoc
	if err := s.col(colProjects).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err, "get project")
	}
	p := doc.model()
	return &p, nil
}

// ListProjects returns the projects userID owns or belongs to, newest first
func (s *Store) ListProjects(ctx context.Context, userID string, f store.ProjectFilter) ([]model.Project, error) {
	docs, err := findAll[projectDoc](ctx, s.col(colProjects), projectAccessFilter(userID, f), newestFirst(f.Limit), "list projects")
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, len(docs))
	for i, d := range docs {
		projects[i] = d.model()
	}
	return projects, nil
}

// AccessibleProjectIDs returns the ids of projects userID owns or belongs to
func (s *Store) AccessibleProjectIDs(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	docs, err := findAll[struct {
		ID string `bson:"_id"`
	}](ctx, s.col(colProjects), projectAccessFilter(userID, store.ProjectFilter{}), opts, "accessible project ids")
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// UpdateProject applies upd, replacing the member list when it is set
func (s *Store) UpdateProject(ctx context.Context, id string, upd store.ProjectUpdate) (*model.Project, error) {
	set := bson.M{"updatedAt": store.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.MemberIDs != nil {
		set["members"] = *upd.MemberIDs
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}
	if upd.Icon != nil {
		set["icon"] = *upd.Icon
	}
	res, err := s.col(colProjects).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, translate(err, "update project")
	}
	if res.MatchedCount == 0 {
		return nil, errors.Wrap(store.ErrNotFound, "update project")
	}
	return s.GetProject(ctx, id)
}

// ProjectRefs returns short projections of the projects in ids that exist
func (s *Store) ProjectRefs(ctx context.Context, ids []string) (map[string]model.ProjectRef, error) {
	out := make(map[string]model.ProjectRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[projectDoc](ctx, s.col(colProjects), bson.M{"_id": bson.M{"$in": ids}}, options.Find(), "project refs")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		p := d.model()
		out[p.ID] = p.Ref()
	}
	return out, nil
}

// ProjectTaskCounts aggregates task totals per project. Projects without tasks are absent.
func (s *Store) ProjectTaskCounts(ctx context.Context, ids []string) (map[string]model.TaskCounts, error) {
	out := make(map[string]model.TaskCounts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$project"},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "completed", Value: bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(model.StatusCompleted)}}, 1, 0},
			}}},
		}}},
	}
	cur, err := s.col(colTasks).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "project task counts")
	}
	defer cur.Close(ctx)
	var rows []struct {
		ID        string `bson:"_id"`
		Total     int64  `bson:"total"`
		Completed int64  `bson:"completed"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "project task counts")
	}
	for _, r := range rows {
		out[r.ID] = model.TaskCounts{Total: r.Total, Completed: r.Completed}
	}
	return out, nil
}

// DeleteProjectCascade runs the cascade in a multi-document transaction,
// which requires a replica set
func (s *Store) DeleteProjectCascade(ctx context.Context, id string) (store.CascadeResult, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return store.CascadeResult{}, errors.Wrap(err, "start session")
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var result store.CascadeResult

		n, err := s.col(colProjects).CountDocuments(sc, bson.M{"_id": id})
		if err != nil {
			return nil, errors.Wrap(err, "check project")
		}
		if n == 0 {
			return nil, errors.Wrap(store.ErrNotFound, "delete project")
		}

		docs, err := findAll[struct {
			ID string `bson:"_id"`
		}](sc, s.col(colTasks), bson.M{"project": id}, options.Find().SetProjection(bson.M{"_id": 1}), "project tasks")
		if err != nil {
			return nil, err
		}
		taskIDs := make([]string, len(docs))
		for i, d := range docs {
			taskIDs[i] = d.ID
		}

		if len(taskIDs) > 0 {
			res, err := s.col(colComments).DeleteMany(sc, bson.M{"task": bson.M{"$in": taskIDs}})
			if err != nil {
				return nil, errors.Wrap(err, "delete comments")
			}
			result.Comments = res.DeletedCount
		}
		res, err := s.col(colTasks).DeleteMany(sc, bson.M{"project": id})
		if err != nil {
			return nil, errors.Wrap(err, "delete tasks")
		}
		result.Tasks = res.DeletedCount

		res, err = s.col(colActivity).DeleteMany(sc, bson.M{"project": id})
		if err != nil {
			return nil, errors.Wrap(err, "delete activity")
		}
		result.Activities = res.DeletedCount

		if _, err := s.col(colProjects).DeleteOne(sc, bson.M{"_id": id}); err != nil {
			return nil, errors.Wrap(err, "delete project")
		}
		return result, nil
	})
	if err != nil {
		return store.CascadeResult{}, err
	}
	return out.(store.CascadeResult), nil
}

// Tasks

// CreateTask inserts t with its embedded subtasks
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	t.ID = newID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = store.Now()
	}
	t.CreatedAt = store.Timestamp(t.CreatedAt)
	if t.UpdatedAt.IsZero() || t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
	t.UpdatedAt = store.Timestamp(t.UpdatedAt)
	if t.Status == "" {
		t.Status = model.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []model.Subtask{}
	}
	for i := range t.Subtasks {
		t.Subtasks[i].ID = newID(t.Subtasks[i].ID)
	}
	_, err := s.col(colTasks).InsertOne(ctx, newTaskDoc(t))
	return translate(err, "insert task")
}

// GetTask returns the task with id
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var doc taskDoc
	if err := s.col(colTasks).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err, "get task")
	}
	t := doc.model()
	return &t, nil
}

// ListTasks returns the tasks matching q, newest first
func (s *Store) ListTasks(ctx context.Context, q access.TaskQuery) ([]model.Task, error) {
	docs, err := findAll[taskDoc](ctx, s.col(colTasks), taskFilter(q), newestFirst(q.Limit), "list tasks")
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, len(docs))
	for i, d := range docs {
		tasks[i] = d.model()
	}
	return tasks, nil
}

// CountTasks counts the tasks matching q, ignoring its limit
func (s *Store) CountTasks(ctx context.Context, q access.TaskQuery) (int64, error) {
	n, err := s.col(colTasks).CountDocuments(ctx, taskFilter(q))
	return n, errors.Wrap(err, "count tasks")
}

// taskUpdateDoc builds the $set and $unset documents for upd
func taskUpdateDoc(upd store.TaskUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.Priority != nil {
		set["priority"] = string(*upd.Priority)
	}
	if upd.ProjectID.Set {
		if v := deref(upd.ProjectID.Value); v != "" {
			set["project"] = v
		} else {
			unset["project"] = ""
		}
	}
	if upd.AssignedTo.Set {
		if v := deref(upd.AssignedTo.Value); v != "" {
			set["assignedTo"] = v
		} else {
			unset["assignedTo"] = ""
		}
	}
	if upd.DueDate.Set {
		if upd.DueDate.Value == nil {
			unset["dueDate"] = ""
		} else {
			set["dueDate"] = store.Timestamp(*upd.DueDate.Value)
		}
	}
	if upd.Labels != nil {
		set["labels"] = *upd.Labels
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.Subtasks != nil {
		subtasks := append([]model.Subtask(nil), *upd.Subtasks...)
		for i := range subtasks {
			subtasks[i].ID = newID(subtasks[i].ID)
		}
		set["subtasks"] = newSubtaskDocs(subtasks)
	}
	if upd.Order != nil {
		set["order"] = *upd.Order
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// UpdateTask applies upd. Label, tag and subtask lists are replaced whole.
func (s *Store) UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) (*model.Task, error) {
	res, err := s.col(colTasks).UpdateByID(ctx, id, taskUpdateDoc(upd, store.Now()))
	if err != nil {
		return nil, translate(err, "update task")
	}
	if res.MatchedCount == 0 {
		return nil, errors.Wrap(store.ErrNotFound, "update task")
	}
	return s.GetTask(ctx, id)
}

// ToggleSubtask flips one embedded subtask in a single update
func (s *Store) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*model.Task, error) {
	res, err := s.col(colTasks).UpdateOne(ctx,
		bson.M{"_id": taskID, "subtasks._id": subtaskID},
		toggleSubtaskPipeline(subtaskID, store.Now()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "toggle subtask")
	}
	if res.MatchedCount == 0 {
		return nil, errors.Wrap(store.ErrNotFound, "toggle subtask")
	}
	return s.GetTask(ctx, taskID)
}

// DeleteTask removes the task and its comments
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.col(colTasks).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete task")
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(store.ErrNotFound, "delete task")
	}
	_, err = s.col(colComments).DeleteMany(ctx, bson.M{"task": id})
	return errors.Wrap(err, "delete task comments")
}

// Comments

// CreateComment inserts c
func (s *Store) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = newID(c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = store.Now()
	}
	c.CreatedAt = store.Timestamp(c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	_, err := s.col(colComments).InsertOne(ctx, commentDoc{
		ID: c.ID, Content: c.Content, Author: c.AuthorID, Task: c.TaskID,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	})
	return translate(err, "insert comment")
}

// GetComment returns the comment with id
func (s *Store) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var doc commentDoc
	if err := s.col(colComments).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err, "get comment")
	}
	c := doc.model()
	return &c, nil
}

// ListComments returns the comments on taskID, oldest first
func (s *Store) ListComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findAll[commentDoc](ctx, s.col(colComments), bson.M{"task": taskID}, opts, "list comments")
	if err != nil {
		return nil, err
	}
	comments := make([]model.Comment, len(docs))
	for i, d := range docs {
		comments[i] = d.model()
	}
	return comments, nil
}

// DeleteComment removes the comment with id
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.col(colComments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete comment")
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(store.ErrNotFound, "delete comment")
	}
	return nil
}

// Activity

// RecordActivity appends an activity entry
func (s *Store) RecordActivity(ctx context.Context, a *model.ActivityLog) error {
	a.ID = newID(a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = store.Now()
	}
	a.CreatedAt = store.Timestamp(a.CreatedAt)
	_, err := s.col(colActivity).InsertOne(ctx, activityDoc{
		ID: a.ID, User: a.UserID, Action: a.Action, EntityType: string(a.EntityType),
		EntityID: a.EntityID, EntityName: a.EntityName, Project: a.ProjectID, Details: a.Details,
		CreatedAt: a.CreatedAt,
	})
	return translate(err, "insert activity")
}

// ListActivity returns entries selected by f, newest first
func (s *Store) ListActivity(ctx context.Context, f store.ActivityFilter) ([]model.ActivityLog, error) {
	docs, err := findAll[activityDoc](ctx, s.col(colActivity), activityFilter(f), newestFirst(f.Limit), "list activity")
	if err != nil {
		return nil, err
	}
	entries := make([]model.ActivityLog, len(docs))
	for i, d := range docs {
		entries[i] = d.model()
	}
	return entries, nil
}
