// Package client talks to the habit-tracker JSON API and implements habits.Remote.
package client

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

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

var _ habits.Remote = (*Client)(nil)

// Client is an HTTP habits.Remote
type Client struct {
	baseURL *url.URL
	base    http.RoundTripper
	timeout time.Duration
	logger  zerolog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport sets the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		base:    http.DefaultTransport,
		timeout: DefaultTimeout,
		logger:  logging.GetLogger("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// httpClient returns a client that attaches the session token as a bearer token
func (c *Client) httpClient(sess habits.Session) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sess.Token, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}
}

// do sends the request and decodes a 2xx body into out. Any other outcome is
// returned as a *models.RemoteError.
func (c *Client) do(ctx context.Context, sess habits.Session, method, path string, body, out any) error {
	if sess.Token == "" {
		return &models.RemoteError{Kind: models.ErrUnauthenticated, Message: "no session token"}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return &models.RemoteError{Kind: models.ErrTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.RemoteError{Kind: models.ErrTransient, Status: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func decodeError(resp *http.Response) error {
	remoteErr := &models.RemoteError{Kind: KindForStatus(resp.StatusCode), Status: resp.StatusCode}

	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		remoteErr.Message = body.Error
		remoteErr.Details = body.Details
	} else {
		remoteErr.Message = http.StatusText(resp.StatusCode)
	}
	return remoteErr
}

// KindForStatus maps an HTTP status to the error kind it reports
func KindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return models.ErrValidation
	case http.StatusUnauthorized:
		return models.ErrUnauthenticated
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	default:
		return models.ErrTransient
	}
}

func habitPath(id string) string {
	return "/api/habits/" + url.PathEscape(id)
}

// ListHabits returns every habit of the session user with its entries
func (c *Client) ListHabits(ctx context.Context, sess habits.Session) ([]models.HabitWithEntries, error) {
	var out []models.HabitWithEntries
	if err := c.do(ctx, sess, http.MethodGet, "/api/habits", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateHabit creates a habit named name
func (c *Client) CreateHabit(ctx context.Context, sess habits.Session, name string) (*models.Habit, error) {
	var out models.Habit
	if err := c.do(ctx, sess, http.MethodPost, "/api/habits", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateHabit renames the habit
func (c *Client) UpdateHabit(ctx context.Context, sess habits.Session, id, name string) (*models.Habit, error) {
	var out models.Habit
	if err := c.do(ctx, sess, http.MethodPatch, habitPath(id), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteHabit deletes the habit and its entries
func (c *Client) DeleteHabit(ctx context.Context, sess habits.Session, id string) error {
	return c.do(ctx, sess, http.MethodDelete, habitPath(id), nil, nil)
}

// ListEntries returns the habit's entries, newest day first
func (c *Client) ListEntries(ctx context.Context, sess habits.Session, habitID string) ([]models.Entry, error) {
	var out []models.Entry
	if err := c.do(ctx, sess, http.MethodGet, habitPath(habitID)+"/entries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEntry sends the day key of date. The server normalizes it in its own
// reference timezone, so date should already be a start of day there.
func (c *Client) CreateEntry(ctx context.Context, sess habits.Session, habitID string, date time.Time) (*models.Entry, error) {
	var out models.Entry
	body := map[string]string{"date": date.Format(constants.DateFormat)}
	if err := c.do(ctx, sess, http.MethodPost, habitPath(habitID)+"/entries", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEntry removes one entry of the habit
func (c *Client) DeleteEntry(ctx context.Context, sess habits.Session, habitID, entryID string) error {
	return c.do(ctx, sess, http.MethodDelete, habitPath(habitID)+"/entries/"+url.PathEscape(entryID), nil, nil)
}

// Session fetches the session the token belongs to and the server's reference timezone
func (c *Client) Session(ctx context.Context, token string) (*models.SessionInfo, error) {
	var out models.SessionInfo
	if err := c.do(ctx, habits.Session{Token: token}, http.MethodGet, "/api/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
