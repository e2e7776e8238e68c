// Package gateway is the client for the system-of-record FHIR document store.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"civreg/internal/fhir"
	"civreg/pkg/platform/sentinel"
)

// Client fetches and persists record bundles.
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

// FetchRecord retrieves the authoritative version of a record. When
// includeHistory is set the store returns the task's full revision history
// alongside the current entries.
func (c *Client) FetchRecord(ctx context.Context, id, token string, includeHistory bool) (*fhir.Bundle, error) {
	endpoint := fmt.Sprintf("%s/records/%s", c.baseURL, url.PathEscape(id))
	if includeHistory {
		endpoint += "?history=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w: %w", id, sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("record store returned %d: %w", res.StatusCode, sentinel.ErrUnavailable)
	}

	var bundle fhir.Bundle
	if err := json.NewDecoder(res.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &bundle, nil
}

// Persist writes a mutated bundle back to the store. Callers on the
// post-response path must treat failures as log-only: by the time Persist
// runs, the response has already left the building.
func (c *Client) Persist(ctx context.Context, bundle *fhir.Bundle, token string) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fhir", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build persist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/fhir+json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("persist bundle: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("record store rejected bundle with %d: %w", res.StatusCode, sentinel.ErrRejected)
	}
	return nil
}
