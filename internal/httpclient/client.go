// Package httpclient provides the retrying JSON HTTP client remote data
// sources are built on.
//
// Non-2xx responses come back inside the envelope so the caller can
// classify the status; only genuine transport faults (dial, DNS, timeout,
// undecodable body) are returned as errors, already classified.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/datakit/internal/datasource"
	"github.com/mrlokans/datakit/internal/faults"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	retryBackoffFactor = 2

	maxErrorBodyBytes = 4096
)

// Config tunes a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	Headers    map[string]string
}

// Client is a retrying HTTP client bound to one base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// New creates a client for the given base URL.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = defaultRetryDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay == 0 {
		maxDelay = defaultMaxDelay
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		maxDelay:   maxDelay,
	}
}

// Get performs a GET against path with optional query parameters and
// decodes the JSON body into N. Responses with status 429 or 5xx are
// retried with exponential backoff; once retries are exhausted the last
// envelope is returned so the caller sees the status.
func Get[N any](ctx context.Context, c *Client, path string, query url.Values) (datasource.Envelope[N], error) {
	target, err := c.buildURL(path, query)
	if err != nil {
		return datasource.Envelope[N]{}, faults.Wrap(faults.KindBadRequest, "invalid request URL: "+err.Error(), err)
	}

	var (
		lastEnv datasource.Envelope[N]
		lastErr error
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return datasource.Envelope[N]{}, faults.ClassifyTransport(ctx.Err())
			case <-time.After(c.backoff(attempt)):
			}
		}

		env, retry, err := doRequest[N](ctx, c, target)
		if err != nil {
			lastErr = err
			var fe *faults.Error
			if errors.As(err, &fe) && fe.Retryable() {
				continue
			}
			return datasource.Envelope[N]{}, err
		}
		if !retry {
			return env, nil
		}
		lastEnv = env
		lastErr = nil
	}

	if lastErr != nil {
		return datasource.Envelope[N]{}, lastErr
	}
	return lastEnv, nil
}

func doRequest[N any](ctx context.Context, c *Client, target string) (datasource.Envelope[N], bool, error) {
	var zero datasource.Envelope[N]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return zero, false, faults.Wrap(faults.KindBadRequest, "failed to create request: "+err.Error(), err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, false, faults.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		env := datasource.Envelope[N]{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		return env, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		env := datasource.Envelope[N]{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		return env, false, nil
	}

	var value N
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return zero, false, faults.Wrap(faults.KindJSONParsing, "failed to decode response: "+err.Error(), err)
	}

	return datasource.Envelope[N]{Value: &value, StatusCode: resp.StatusCode}, false, nil
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay
}

// readErrorMessage extracts a human-readable message from an error body:
// the "message" or "error" field of a JSON object when present, otherwise
// the trimmed body text.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
