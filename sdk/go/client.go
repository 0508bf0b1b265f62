package cutroomsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal cutroom HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Profile is the public part of a user profile.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Project represents the API project model (partial).
type Project struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Status           string  `json:"status"`
	Priority         string  `json:"priority"`
	DueAt            *string `json:"due_at,omitempty"`
	AssignedEditorID *string `json:"assigned_editor_id,omitempty"`
	ClientName       string  `json:"client_name,omitempty"`
	RevisionCount    int     `json:"revision_count"`
	NeedsInfo        bool    `json:"needs_info"`
}

// Message is one chat entry. System messages have no sender.
type Message struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	SenderID    *string        `json:"sender_id,omitempty"`
	Body        string         `json:"body"`
	MessageType string         `json:"message_type"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// Thread is an inbox row.
type Thread struct {
	ProjectID    string  `json:"project_id"`
	ProjectTitle string  `json:"project_title,omitempty"`
	Latest       Message `json:"latest"`
	Unread       int     `json:"unread"`
}

// ProjectFilter narrows Projects. Empty fields are not sent.
type ProjectFilter struct {
	Status   string
	EditorID string
	Priority string
	Due      string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	var resp struct {
		Token   string  `json:"token"`
		Profile Profile `json:"profile"`
	}
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return Profile{}, err
	}
	c.BearerToken = resp.Token
	return resp.Profile, nil
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

func (c *Client) Projects(ctx context.Context, f ProjectFilter) ([]Project, error) {
	q := url.Values{}
	for k, v := range map[string]string{"status": f.Status, "editor_id": f.EditorID, "priority": f.Priority, "due": f.Due} {
		if v != "" {
			q.Set(k, v)
		}
	}
	endpoint := "projects"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Projects []Project `json:"projects"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Projects, err
}

// Messages returns the latest chat window of a project, oldest first.
func (c *Client) Messages(ctx context.Context, projectID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "messages"), nil, &resp)
	return resp.Messages, err
}

func (c *Client) SendMessage(ctx context.Context, projectID, text string) (Message, error) {
	var resp Message
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "messages"), map[string]any{"body": text}, &resp)
	return resp, err
}

// MarkRead moves the caller's watermark to the latest message and returns it.
func (c *Client) MarkRead(ctx context.Context, projectID string) (string, error) {
	var resp struct {
		LastSeen string `json:"last_seen"`
	}
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "messages/read"), nil, &resp)
	return resp.LastSeen, err
}

func (c *Client) Unread(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "unread", nil, &resp)
	return resp.Count, err
}

func (c *Client) Inbox(ctx context.Context) ([]Thread, error) {
	var resp struct {
		Threads []Thread `json:"threads"`
	}
	err := c.do(ctx, http.MethodGet, "inbox", nil, &resp)
	return resp.Threads, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(projectID, p string) string {
	return fmt.Sprintf("projects/%s/%s", url.PathEscape(projectID), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if bp := strings.Trim(c.BasePath, "/"); bp != "" {
		base += "/" + bp
	}
	return base
}
