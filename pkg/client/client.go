// Package client is the typed HTTP client the CLI uses to talk to a
// clipboard server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

// Client errors.
var (
	// ErrUnauthorized means the server rejected our API key.
	ErrUnauthorized = errors.New("invalid API key")
	// ErrNotFound maps the server's 404 responses (empty session on a
	// latest fetch, unknown session on end).
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound is returned by Join when the code is not an
	// active session.
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Client talks to a clipboard server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// StartSession asks the server for a fresh session and returns its code.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/session/start", nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Join verifies that code names an active session. Unlike the other calls it
// does not touch the session itself: a plain read would silently create it.
func (c *Client) Join(ctx context.Context, code string) error {
	summaries, err := c.ActiveSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if s.SessionID == code {
			return nil
		}
	}
	return ErrSessionNotFound
}

// Send pushes clipboard content into the session.
func (c *Client) Send(ctx context.Context, sessionID, content, hostname string) (session.Item, error) {
	body := map[string]string{"content": content}
	if hostname != "" {
		body["hostname"] = hostname
	}

	var item session.Item
	err := c.do(ctx, http.MethodPost, "/session/"+sessionID+"/clipboard", body, &item)
	return item, err
}

// Latest fetches the most recent item in the session.
func (c *Client) Latest(ctx context.Context, sessionID, hostname string) (session.Item, error) {
	path := "/session/" + sessionID + "/clipboard/latest"
	if hostname != "" {
		path += "?hostname=" + hostname
	}

	var item session.Item
	err := c.do(ctx, http.MethodGet, path, nil, &item)
	return item, err
}

// History fetches the session's items, oldest first.
func (c *Client) History(ctx context.Context, sessionID, hostname string) ([]session.Item, error) {
	path := "/session/" + sessionID + "/clipboard/history"
	if hostname != "" {
		path += "?hostname=" + hostname
	}

	var items []session.Item
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

// EndSession deletes the session and its shared data.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/session/"+sessionID+"/end", nil, nil)
}

// ActiveSessions lists live sessions on the server.
func (c *Client) ActiveSessions(ctx context.Context) ([]session.Summary, error) {
	var summaries []session.Summary
	err := c.do(ctx, http.MethodGet, "/sessions/active", nil, &summaries)
	return summaries, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
