package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"civreg/pkg/platform/sentinel"
)

// DetailsCache caches resolved actor details between requests. Misses return
// sentinel.ErrNotFound; cache failures must never fail a lookup.
type DetailsCache interface {
	GetUser(ctx context.Context, id string) (*User, error)
	PutUser(ctx context.Context, user *User) error
	GetSystem(ctx context.Context, id string) (*System, error)
	PutSystem(ctx context.Context, system *System) error
}

// Client talks to the user-management service. A nil cache disables caching.
type Client struct {
	baseURL string
	http    *http.Client
	cache   DetailsCache
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, cache DetailsCache, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient, cache: cache, logger: logger}
}

// GetUser resolves a human actor by token subject.
func (c *Client) GetUser(ctx context.Context, subject, token string) (*User, error) {
	if c.cache != nil {
		if user, err := c.cache.GetUser(ctx, subject); err == nil {
			return user, nil
		}
	}
	var user User
	if err := c.post(ctx, "/getUser", map[string]string{"userId": subject}, token, &user); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.PutUser(ctx, &user); err != nil {
			c.logger.WarnContext(ctx, "user details cache write failed", "error", err)
		}
	}
	return &user, nil
}

// GetSystem resolves a machine client actor by token subject.
func (c *Client) GetSystem(ctx context.Context, subject, token string) (*System, error) {
	if c.cache != nil {
		if system, err := c.cache.GetSystem(ctx, subject); err == nil {
			return system, nil
		}
	}
	var system System
	if err := c.post(ctx, "/getSystem", map[string]string{"systemId": subject}, token, &system); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.PutSystem(ctx, &system); err != nil {
			c.logger.WarnContext(ctx, "system details cache write failed", "error", err)
		}
	}
	return &system, nil
}

// SearchUsers fetches one page of users, newest first. Used by the
// notification fan-out, which walks pages of a fixed size.
func (c *Client) SearchUsers(ctx context.Context, count, skip int, token string) (*SearchPage, error) {
	body := map[string]any{
		"count":     count,
		"skip":      skip,
		"sortOrder": "desc",
	}
	var page SearchPage
	if err := c.post(ctx, "/searchUsers", body, token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) post(ctx context.Context, path string, body any, token string, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("user management %s: %w: %w", path, sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("user management %s: %w", path, sentinel.ErrNotFound)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("user management %s returned %d: %w", path, res.StatusCode, sentinel.ErrUnavailable)
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
