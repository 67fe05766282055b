package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/datakit/internal/faults"
)

type payload struct {
	Name string `json:"name"`
}

func testClient(baseURL string) *Client {
	return New(Config{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/things/1", r.URL.Path)
		assert.Equal(t, "q=abc", r.URL.RawQuery)
		w.Write([]byte(`{"name": "thing-one"}`))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/things/1", url.Values{"q": {"abc"}})
	require.NoError(t, err)
	assert.Equal(t, 200, env.StatusCode)
	assert.True(t, env.Successful())
	require.NotNil(t, env.Value)
	assert.Equal(t, "thing-one", env.Value.Name)
}

func TestGet_HeaderInjection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
		Headers:    map[string]string{"Authorization": "Token test-token"},
	})

	_, err := Get[payload](context.Background(), c, "/", nil)
	require.NoError(t, err)
}

func TestGet_RetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"name": "finally"}`))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.NotNil(t, env.Value)
	assert.Equal(t, "finally", env.Value.Name)
}

func TestGet_RetriesExhaustedReturnsLastEnvelope(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message": "maintenance window"}`))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.NoError(t, err)
	// initial attempt + 3 retries
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 503, env.StatusCode)
	assert.Equal(t, "maintenance window", env.Message)
	assert.Nil(t, env.Value)
}

func TestGet_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"name": "ok"}`))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, env.Successful())
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "no such thing"}`))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
	assert.Equal(t, 404, env.StatusCode)
	assert.Equal(t, "no such thing", env.Message)
}

func TestGet_PlainTextErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed postal code\n"))
	}))
	defer server.Close()

	env, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, 400, env.StatusCode)
	assert.Equal(t, "malformed postal code", env.Message)
}

func TestGet_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":`))
	}))
	defer server.Close()

	_, err := Get[payload](context.Background(), testClient(server.URL), "/", nil)
	require.Error(t, err)

	var fe *faults.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, faults.KindJSONParsing, fe.Kind)
}

func TestGet_ConnectionRefused(t *testing.T) {
	// Grab a port nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	c := New(Config{
		BaseURL:    target,
		Timeout:    time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	_, err := Get[payload](context.Background(), c, "/", nil)
	require.Error(t, err)

	var fe *faults.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, faults.KindNetworkError, fe.Kind)
	assert.True(t, fe.Retryable())
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:    server.URL,
		Timeout:    20 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	_, err := Get[payload](context.Background(), c, "/", nil)
	require.Error(t, err)

	var fe *faults.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, faults.KindNetworkTimeout, fe.Kind)
	assert.True(t, fe.Retryable())
}

func TestGet_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:    server.URL,
		MaxRetries: 3,
		RetryDelay: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Get[payload](ctx, c, "/", nil)
		done <- err
	}()
	cancel()

	err := <-done
	require.Error(t, err)
	var fe *faults.Error
	assert.True(t, errors.As(err, &fe))
}

func TestBackoff_CappedAtMaxDelay(t *testing.T) {
	c := New(Config{
		RetryDelay: time.Second,
		MaxDelay:   4 * time.Second,
	})

	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 2*time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 4*time.Second, c.backoff(5))
}
