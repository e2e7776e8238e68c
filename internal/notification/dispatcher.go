package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"civreg/pkg/platform/sentinel"
)

// HTTPDispatcher forwards email batches to the notification service.
type HTTPDispatcher struct {
	baseURL string
	http    *http.Client
}

func NewHTTPDispatcher(baseURL string, httpClient *http.Client) *HTTPDispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPDispatcher{baseURL: baseURL, http: httpClient}
}

// SendAllUsersEmail posts one batch to the dispatch endpoint. Anything but a
// 200 fails the batch.
func (d *HTTPDispatcher) SendAllUsersEmail(ctx context.Context, email Email, token string) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("encode email batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/allUsersEmail", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch email batch: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("notification service returned %d: %w", res.StatusCode, sentinel.ErrRejected)
	}
	return nil
}
