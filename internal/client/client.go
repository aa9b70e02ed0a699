package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
)

const defaultBaseURL = "http://127.0.0.1:3000"

// Client calls the check-in HTTP API on behalf of one user.
type Client struct {
	baseURL    string
	userID     string
	timezone   string
	httpClient *http.Client
}

// New creates a client for userID. An empty baseURL targets the default local server.
func New(baseURL, userID string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: httpClient,
	}
}

// WithTimezone sends tz as the viewer's zone on every request.
func (c *Client) WithTimezone(tz string) *Client {
	c.timezone = strings.TrimSpace(tz)
	return c
}

// Activation mirrors the server's check-in view.
type Activation struct {
	ID         string     `json:"id"`
	Decision   string     `json:"decision"`
	State      string     `json:"state"`
	Timezone   string     `json:"timezone"`
	AutoSaveAt *time.Time `json:"auto_save_at,omitempty"`
	AutoSaved  bool       `json:"auto_saved"`
	Entry      *Entry     `json:"entry,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NeedsCheckIn reports whether the server is waiting for a mood.
func (a *Activation) NeedsCheckIn() bool {
	return a.Decision == "needs_check_in" && a.State == "armed"
}

// Entry mirrors a stored mood entry.
type Entry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Mood      string     `json:"mood"`
	Note      string     `json:"note"`
	AutoSaved bool       `json:"auto_saved"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// History mirrors the JSON history listing.
type History struct {
	UserID   string  `json:"user_id"`
	Timezone string  `json:"timezone"`
	Count    int     `json:"count"`
	Entries  []Entry `json:"entries"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

var sentinels = []error{
	shared.ErrNotAuthenticated,
	shared.ErrRateLimited,
	shared.ErrStoreRead,
	shared.ErrStoreWrite,
	shared.ErrEntryNotFound,
	shared.ErrInvalidMood,
	shared.ErrNotArmed,
	shared.ErrAlreadyCommitted,
	shared.ErrDisposed,
	shared.ErrActivationNotFound,
	shared.ErrInvalidInput,
	shared.ErrMissingArgument,
	shared.ErrInvalidArgument,
	shared.ErrInvalidFlag,
}

// Unwrap returns the sentinel the server's message starts with, if any.
func (e *APIError) Unwrap() error {
	for _, s := range sentinels {
		if strings.HasPrefix(e.Message, s.Error()) {
			return s
		}
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Moods returns the selectable labels.
func (c *Client) Moods(ctx context.Context) ([]string, error) {
	var out struct {
		Moods []struct {
			Label string `json:"label"`
		} `json:"moods"`
	}
	if err := c.do(ctx, http.MethodGet, "/moods/options", nil, &out); err != nil {
		return nil, err
	}
	labels := make([]string, len(out.Moods))
	for i, m := range out.Moods {
		labels[i] = m.Label
	}
	return labels, nil
}

// Start opens and evaluates a check-in.
func (c *Client) Start(ctx context.Context) (*Activation, error) {
	var act Activation
	if err := c.do(ctx, http.MethodPost, "/checkins", nil, &act); err != nil {
		return nil, err
	}
	return &act, nil
}

// Get returns a check-in's current status.
func (c *Client) Get(ctx context.Context, id string) (*Activation, error) {
	var act Activation
	if err := c.do(ctx, http.MethodGet, "/checkins/"+url.PathEscape(id), nil, &act); err != nil {
		return nil, err
	}
	return &act, nil
}

// Submit records mood for the check-in.
func (c *Client) Submit(ctx context.Context, id, mood, note string) (*Entry, error) {
	body := map[string]string{"mood": mood, "note": note}
	var entry Entry
	if err := c.do(ctx, http.MethodPost, "/checkins/"+url.PathEscape(id)+"/submit", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Dispose abandons the check-in so nothing is auto-saved.
func (c *Client) Dispose(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/checkins/"+url.PathEscape(id), nil, nil)
}

// History lists entries from the last days calendar days; 0 means all.
func (c *Client) History(ctx context.Context, days, limit int) (*History, error) {
	q := url.Values{"format": {"json"}}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var h History
	if err := c.do(ctx, http.MethodGet, "/moods?"+q.Encode(), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Summary fetches counts and streaks over the last days calendar days.
func (c *Client) Summary(ctx context.Context, days int) (*tasks.Summary, error) {
	path := "/moods/summary"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var s tasks.Summary
	if err := c.do(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes an entry from history.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/moods/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-User-ID", c.userID)
	if c.timezone != "" {
		req.Header.Set("X-Timezone", c.timezone)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsStatus reports whether err is an [APIError] with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
