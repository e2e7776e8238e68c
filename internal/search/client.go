// Package search propagates record state changes to the search index.
// Index writes are best-effort from the workflow's point of view: the caller
// logs failures and moves on, and nothing retries here.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"civreg/internal/fhir"
	"civreg/pkg/platform/sentinel"
)

// EventAssigned tags an index event as a record assignment or download.
const EventAssigned = "/events/assigned"

// Client posts bundles to the search service.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// IndexForAssignment sends the task-only bundle to the index, tagged with the
// given event path.
func (c *Client) IndexForAssignment(ctx context.Context, taskOnly *fhir.Bundle, token, eventTag string) error {
	payload, err := json.Marshal(taskOnly)
	if err != nil {
		return fmt.Errorf("encode index payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+eventTag, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/fhir+json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("index event %s: %w: %w", eventTag, sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("search service returned %d for %s: %w", res.StatusCode, eventTag, sentinel.ErrRejected)
	}
	return nil
}
