// Package apirepo implements the API repository port: endpoint discovery
// against a base URL, authenticated request execution with bounded
// retries, and oauth2 token exchange.
package apirepo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
)

// maxBodySize caps response bodies read into memory.
const maxBodySize = 10 * 1024 * 1024 // 10MB

// Client executes planned API calls. It is safe for concurrent use; each
// invocation is an independent request with its own context.
type Client struct {
	http    *http.Client
	retrier retry.Retry[apiagent.Response]
}

// ClientConfig configures the client.
type ClientConfig struct {
	// Timeout bounds a single HTTP call (default: 30s).
	Timeout time.Duration

	// MaxAttempts bounds retries of transient failures: transport
	// errors, 5xx and 429 (default: 3).
	MaxAttempts int

	// RetryDelay is the initial backoff delay (default: 250ms). It
	// doubles per attempt.
	RetryDelay time.Duration
}

// NewClient creates a request executor.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	delay := config.RetryDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	return &Client{
		http: &http.Client{Timeout: timeout},
		retrier: retry.New[apiagent.Response](retry.Config{
			MaxAttempts:   maxAttempts,
			InitialDelay:  delay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

// retryableStatusError marks a response worth retrying (5xx, 429).
type retryableStatusError struct {
	statusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.statusCode)
}

// Do executes a planned call with the given auth decoration. Transient
// failures are retried up to the configured ceiling; any received response
// is returned with its status code recorded, including 4xx, since the
// caller decides what a 401 means. Only exhausted transport/5xx retries
// map to query.ErrRequest.
func (c *Client) Do(ctx context.Context, baseURL string, plan apiagent.RequestPlan, decorate apiagent.Decoration) (apiagent.Response, error) {
	var last apiagent.Response
	resp, err := c.retrier.Do(ctx, func(ctx context.Context) (apiagent.Response, error) {
		r, err := c.once(ctx, baseURL, plan, decorate)
		if err != nil {
			return apiagent.Response{}, err
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			last = r
			return apiagent.Response{}, &retryableStatusError{statusCode: r.StatusCode}
		}
		return r, nil
	})
	if err != nil {
		// Surface the last received response so its status stays
		// recorded even though the call counts as failed.
		if last.StatusCode != 0 {
			return last, fmt.Errorf("%w: gave up after retries with status %d", query.ErrRequest, last.StatusCode)
		}
		return apiagent.Response{}, fmt.Errorf("%w: %v", query.ErrRequest, err)
	}
	return resp, nil
}

// once performs a single attempt.
func (c *Client) once(ctx context.Context, baseURL string, plan apiagent.RequestPlan, decorate apiagent.Decoration) (apiagent.Response, error) {
	target, err := joinURL(baseURL, plan.ResolvePath())
	if err != nil {
		return apiagent.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(plan.Endpoint.Method), target, nil)
	if err != nil {
		return apiagent.Response{}, err
	}

	q := req.URL.Query()
	for name, value := range plan.QueryValues() {
		q.Set(name, value)
	}
	req.URL.RawQuery = q.Encode()

	for name, value := range plan.HeaderValues() {
		req.Header.Set(name, value)
	}
	req.Header.Set("Accept", "application/json")

	if decorate != nil {
		decorate(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apiagent.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return apiagent.Response{}, err
	}

	logging.Debug().
		Add(logging.Endpoint(plan.Endpoint.ID())).
		Add(logging.StatusCode(resp.StatusCode)).
		Add(logging.Duration(time.Since(start))).
		Msg("request executed")

	out := apiagent.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	if looksLikeJSON(resp.Header.Get("Content-Type"), body) {
		var payload any
		if json.Unmarshal(body, &payload) == nil {
			out.Payload = payload
		}
	}
	return out, nil
}

func joinURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if path == "" || path == "/" {
		return u.String(), nil
	}
	joined, err := url.JoinPath(u.String(), path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	// JoinPath escapes nothing we care about, but keep query intact if
	// the path carried one.
	return joined, nil
}

func looksLikeJSON(contentType string, body []byte) bool {
	if strings.Contains(contentType, "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
