// Package client is a typed HTTP client for a running shepherd daemon.
// The CLI uses it for every remote operation; embedders can too.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/registry"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns the local-daemon default.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// Client talks to the shepherd daemon API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks whether the daemon answers on its state endpoint.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/state", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "err", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Register upserts a child descriptor on the daemon.
func (c *Client) Register(ctx context.Context, name, path string) error {
	return c.postJSON(ctx, "/register", map[string]string{"name": name, "path": path}, nil)
}

// List returns the registered descriptors.
func (c *Client) List(ctx context.Context) ([]registry.Descriptor, error) {
	var out []registry.Descriptor
	if err := c.get(ctx, "/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleResult reports the flag value after a toggle or set.
type ToggleResult struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// IsEnabled reads the current enable flag for name.
func (c *Client) IsEnabled(ctx context.Context, name string) (bool, error) {
	var out ToggleResult
	if err := c.get(ctx, "/enabled?name="+url.QueryEscape(name), &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// Toggle flips the enable flag for name.
func (c *Client) Toggle(ctx context.Context, name string) (ToggleResult, error) {
	var out ToggleResult
	err := c.postJSON(ctx, "/toggle?name="+url.QueryEscape(name), nil, &out)
	return out, err
}

// SetEnabled writes the enable flag for name.
func (c *Client) SetEnabled(ctx context.Context, name string, v bool) error {
	q := fmt.Sprintf("/toggle?name=%s&value=%t", url.QueryEscape(name), v)
	return c.postJSON(ctx, q, nil, nil)
}

// Log records a notification entry on the daemon.
func (c *Client) Log(ctx context.Context, level notify.Level, source, message string) error {
	body := map[string]string{"level": string(level), "source": source, "message": message}
	return c.postJSON(ctx, "/log", body, nil)
}

// Notifications fetches filtered entries oldest to newest.
func (c *Client) Notifications(ctx context.Context, level notify.Level, source string) ([]notify.Entry, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", string(level))
	}
	if source != "" {
		q.Set("source", source)
	}
	path := "/notifications"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out []notify.Entry
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Launch asks the daemon to launch one registered child.
func (c *Client) Launch(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/launch?name="+url.QueryEscape(name), nil, nil)
}

// Shutdown asks the daemon to run the shutdown escalation.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.postJSON(ctx, "/shutdown", nil, nil)
}

// StateResult is the daemon's supervisor snapshot.
type StateResult struct {
	State   string `json:"state"`
	Handles []struct {
		Name       string    `json:"Name"`
		PID        int       `json:"PID"`
		LaunchTime time.Time `json:"LaunchTime"`
	} `json:"handles"`
}

// State fetches the supervisor state and tracked handles.
func (c *Client) State(ctx context.Context) (StateResult, error) {
	var out StateResult
	err := c.get(ctx, "/state", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("daemon: %s", e.Error)
		}
		return fmt.Errorf("daemon: unexpected status %d for %s", resp.StatusCode, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
