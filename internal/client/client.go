// Package client talks to the taskboard REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/service"
)

// ErrNotLoggedIn is returned by calls that need a session when there is none
var ErrNotLoggedIn = errors.New("not logged in, run 'taskboard auth login' first")

// APIError is an error response from the server
type APIError struct {
	Status  int
	Message string
	Fields  []apperr.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Message
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Client is an API client bound to persisted settings
type Client struct {
	settings   *Settings
	path       string
	httpClient *http.Client
}

// New loads the settings at path and returns a client for them
func New(path string) (*Client, error) {
	s, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return &Client{
		settings:   s,
		path:       path,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NewDefault loads the settings from DefaultPath
func NewDefault() (*Client, error) {
	return New(DefaultPath())
}

// Settings returns the current settings
func (c *Client) Settings() Settings {
	return *c.settings
}

// IsLoggedIn reports whether a session token is stored
func (c *Client) IsLoggedIn() bool {
	return c.settings.Token != ""
}

// SetServer changes the API base URL
func (c *Client) SetServer(u string) error {
	if _, err := url.ParseRequestURI(u); err != nil {
		return errors.Wrapf(err, "invalid server URL %q", u)
	}
	c.settings.ServerURL = strings.TrimRight(u, "/")
	return c.settings.Save(c.path)
}

// UseServer changes the base URL without saving it
func (c *Client) UseServer(u string) {
	c.settings.ServerURL = strings.TrimRight(u, "/")
}

// SetContext stores the default project for new tasks. Empty clears it.
func (c *Client) SetContext(projectID string) error {
	c.settings.Context = projectID
	return c.settings.Save(c.path)
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []apperr.FieldError `json:"errors"`
}

// do sends one request and decodes the data member of the response into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.settings.ServerURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.settings.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.Token)
	}

	logger.Debug("API request", logger.F("method", method), logger.F("url", u))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", c.settings.ServerURL)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "unexpected response (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
		// the stored session is no longer accepted
		c.settings.Token = ""
		if err := c.settings.Save(c.path); err != nil {
			logger.Warn("Failed to clear stale session", logger.Err(err))
		}
	}
	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, out), "failed to decode response")
}

func (c *Client) authed() error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (c *Client) storeSession(sess *service.Session) error {
	c.settings.Token = sess.Token
	c.settings.UserID = sess.User.ID
	c.settings.UserName = sess.User.Name
	c.settings.Email = sess.User.Email
	return c.settings.Save(c.path)
}

// Register creates an account and stores its session
func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	var sess service.Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &sess); err != nil {
		return nil, err
	}
	return sess.User, c.storeSession(&sess)
}

// Login authenticates and stores the session
func (c *Client) Login(ctx context.Context, in service.LoginInput) (*model.User, error) {
	var sess service.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &sess); err != nil {
		return nil, err
	}
	return sess.User, c.storeSession(&sess)
}

// Logout forgets the stored session
func (c *Client) Logout() error {
	c.settings.Token = ""
	c.settings.UserID = ""
	c.settings.UserName = ""
	c.settings.Email = ""
	c.settings.Context = ""
	return c.settings.Save(c.path)
}

// Me returns the logged in user
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Projects lists the caller's projects, optionally by status
func (c *Client) Projects(ctx context.Context, status model.ProjectStatus) ([]service.ProjectView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var out struct {
		Projects []service.ProjectView `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Project returns one project
func (c *Client) Project(ctx context.Context, id string) (*service.ProjectView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Project *service.ProjectView `json:"project"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

// CreateProject creates a project owned by the caller
func (c *Client) CreateProject(ctx context.Context, in service.CreateProjectInput) (*service.ProjectView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Project *service.ProjectView `json:"project"`
	}
	if err := c.do(ctx, http.MethodPost, "/projects", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

// UpdateProject sends only the given fields
func (c *Client) UpdateProject(ctx context.Context, id string, changes map[string]interface{}) (*service.ProjectView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Project *service.ProjectView `json:"project"`
	}
	if err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), nil, changes, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

// DeleteProject removes a project with everything in it
func (c *Client) DeleteProject(ctx context.Context, id string) (*CascadeResult, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Deleted CascadeResult `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Deleted, nil
}

// CascadeResult counts what a project deletion removed
type CascadeResult struct {
	Tasks      int64 `json:"tasks"`
	Comments   int64 `json:"comments"`
	Activities int64 `json:"activities"`
}

// TaskFilter narrows a task listing
type TaskFilter struct {
	Project    string
	Status     model.TaskStatus
	Priority   model.Priority
	AssignedTo string
	Labels     []string
	Search     string
}

func (f TaskFilter) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("project", f.Project)
	set("status", string(f.Status))
	set("priority", string(f.Priority))
	set("assignedTo", f.AssignedTo)
	set("labels", strings.Join(f.Labels, ","))
	set("search", f.Search)
	return q
}

// Tasks lists the tasks visible to the caller
func (c *Client) Tasks(ctx context.Context, f TaskFilter) ([]service.TaskView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Tasks []service.TaskView `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", f.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Task returns one task
func (c *Client) Task(ctx context.Context, id string) (*service.TaskView, error) {
	return c.taskCall(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil)
}

// CreateTask creates a task
func (c *Client) CreateTask(ctx context.Context, in service.CreateTaskInput) (*service.TaskView, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks", in)
}

// UpdateTask sends only the given fields. A nil value clears project,
// assignee or due date.
func (c *Client) UpdateTask(ctx context.Context, id string, changes map[string]interface{}) (*service.TaskView, error) {
	return c.taskCall(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), changes)
}

// ToggleSubtask flips one checklist entry
func (c *Client) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*service.TaskView, error) {
	path := fmt.Sprintf("/tasks/%s/subtasks/%s/toggle", url.PathEscape(taskID), url.PathEscape(subtaskID))
	return c.taskCall(ctx, http.MethodPatch, path, nil)
}

func (c *Client) taskCall(ctx context.Context, method, path string, body interface{}) (*service.TaskView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Task *service.TaskView `json:"task"`
	}
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// DeleteTask removes a task and its comments
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.authed(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// Comments lists a task's comments, oldest first
func (c *Client) Comments(ctx context.Context, taskID string) ([]service.CommentView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Comments []service.CommentView `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// AddComment posts a comment on a task
func (c *Client) AddComment(ctx context.Context, taskID, content string) (*service.CommentView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out struct {
		Comment *service.CommentView `json:"comment"`
	}
	body := service.CommentInput{Content: content}
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/comments", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Comment, nil
}

// DeleteComment removes one of the caller's comments
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if err := c.authed(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil, nil)
}

// Search finds projects and tasks by text
func (c *Client) Search(ctx context.Context, text string) (*service.SearchResult, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out service.SearchResult
	if err := c.do(ctx, http.MethodGet, "/search", url.Values{"q": {text}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics returns the caller's dashboard numbers
func (c *Client) Analytics(ctx context.Context) (*service.Analytics, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	var out service.Analytics
	if err := c.do(ctx, http.MethodGet, "/analytics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity returns the caller's feed, or one project's when projectID is set
func (c *Client) Activity(ctx context.Context, projectID string, limit int) ([]service.ActivityView, error) {
	if err := c.authed(); err != nil {
		return nil, err
	}
	path := "/activity"
	if projectID != "" {
		path += "/project/" + url.PathEscape(projectID)
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Activities []service.ActivityView `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}
