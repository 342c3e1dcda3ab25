package portal

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

	"github.com/rs/zerolog"
)

// GuestToken is the bearer sentinel sent when no staff session exists
const GuestToken = "GUEST"

// TokenSource supplies the current session token. An empty string means
// unauthenticated; the client then sends the guest sentinel.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed-value TokenSource
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// APIError is a non-2xx response decoded from the server's error payload
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// Client is the REST half of the portal SDK. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// NewClient builds a Client against baseURL (e.g. http://localhost:8080/api/v1)
func NewClient(baseURL string, tokens TokenSource, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		log:     log,
	}
}

// WebSocketURL derives the live-update endpoint from the REST base URL
func (c *Client) WebSocketURL() string {
	ws := strings.Replace(c.baseURL, "http", "ws", 1)
	ws = strings.TrimSuffix(ws, "/api/v1")
	return ws + "/ws"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	token := c.tokens.Token()
	if token == "" {
		token = GuestToken
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb struct {
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &eb); err != nil || eb.Detail == "" {
			eb.Detail = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: eb.Detail}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListParams narrows a request listing. Zero values are omitted from the
// query string.
type ListParams struct {
	Skip      int
	Limit     int
	Status    string
	Search    string
	StartDate string
	EndDate   string
	OrderBy   string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.StartDate != "" {
		q.Set("start_date", p.StartDate)
	}
	if p.EndDate != "" {
		q.Set("end_date", p.EndDate)
	}
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
	}
	return q
}

// CreateRequestInput is the POST /requests payload
type CreateRequestInput struct {
	FullName      string  `json:"full_name"`
	NationalID    int64   `json:"national_id"`
	MedicalNumber *int64  `json:"medical_number,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// UpdateRequestInput is the PUT /requests/:id payload
type UpdateRequestInput struct {
	MedicalNumber *int64  `json:"medical_number,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	AssignedTo    int     `json:"assigned_to"`
}

// Login exchanges form-encoded credentials for a session token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests fetches one window of the request collection
func (c *Client) ListRequests(ctx context.Context, params ListParams) (*ListResponse, error) {
	var out ListResponse
	if err := c.do(ctx, http.MethodGet, "/requests", params.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRequest fetches a single record
func (c *Client) GetRequest(ctx context.Context, id int) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodGet, "/requests/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequest submits a new registration
func (c *Client) CreateRequest(ctx context.Context, input CreateRequestInput) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodPost, "/requests", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRequest verifies a registration
func (c *Client) UpdateRequest(ctx context.Context, id int, input UpdateRequestInput) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodPut, "/requests/"+strconv.Itoa(id), nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestStats fetches the scalar counters
func (c *Client) RequestStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/requests/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssignees fetches the assignee roster
func (c *Client) ListAssignees(ctx context.Context, skip, limit int) (*AssigneeListResponse, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out AssigneeListResponse
	if err := c.do(ctx, http.MethodGet, "/assignees", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssignee adds a staff member to the roster
func (c *Client) CreateAssignee(ctx context.Context, fullName string) (*Assignee, error) {
	var out Assignee
	body := map[string]string{"full_name": fullName}
	if err := c.do(ctx, http.MethodPost, "/assignees", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssignee renames a roster entry
func (c *Client) UpdateAssignee(ctx context.Context, id int, fullName string) (*Assignee, error) {
	var out Assignee
	body := map[string]string{"full_name": fullName}
	if err := c.do(ctx, http.MethodPut, "/assignees/"+strconv.Itoa(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAssignee removes a roster entry
func (c *Client) DeleteAssignee(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/assignees/"+strconv.Itoa(id), nil, nil, nil)
}

// AssigneeStats fetches per-assignee completion counts
func (c *Client) AssigneeStats(ctx context.Context) ([]AssigneeStat, error) {
	var out struct {
		Stats []AssigneeStat `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/assignees/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Stats, nil
}

// Me fetches the authenticated account
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches staff accounts
func (c *Client) ListUsers(ctx context.Context, skip, limit int) (*UserListResponse, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out UserListResponse
	if err := c.do(ctx, http.MethodGet, "/users", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser adds a staff account
func (c *Client) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	var out User
	body := map[string]string{"username": username, "password": password, "role": role}
	if err := c.do(ctx, http.MethodPost, "/users", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a staff account
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/users/"+strconv.Itoa(id), nil, nil, nil)
}

// LastCounter fetches the "now serving" number
func (c *Client) LastCounter(ctx context.Context) (*CounterUpdate, error) {
	var out CounterUpdate
	if err := c.do(ctx, http.MethodGet, "/counter/last", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
