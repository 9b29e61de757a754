package venues

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const userAgent = "oddsintel/1.0"

// statusError reports a non-200 venue response. Callers branch on the code
// for rate limits and auth failures.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.code, e.body)
}

// httpStatus returns the HTTP status code carried by err, or 0 when err is
// not a venue status error.
func httpStatus(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}

	return 0
}

// client is the HTTP plumbing shared by the venue adapters.
type client struct {
	httpClient *http.Client
}

func newClient(timeout time.Duration) *client {
	return &client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// getJSON performs a GET against requestURL and decodes the JSON response
// into out.
func (c *client) getJSON(ctx context.Context, requestURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.doJSON(req, headers, out)
}

// postJSON performs a POST with a JSON payload and decodes the response
// into out.
func (c *client) postJSON(ctx context.Context, requestURL string, headers map[string]string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req, headers, out)
}

func (c *client) doJSON(req *http.Request, headers map[string]string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
