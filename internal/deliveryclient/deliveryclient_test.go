package deliveryclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/deliveryclient"
)

func TestClient_Post_Success(t *testing.T) {
	t.Parallel()

	var (
		capturedMethod      string
		capturedContentType string
		capturedUserAgent   string
		capturedBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedContentType = r.Header.Get("Content-Type")
		capturedUserAgent = r.Header.Get("User-Agent")
		capturedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := deliveryclient.New()
	defer client.Close()

	payload := []byte(`{"hello":"world"}`)
	result := client.Post(context.Background(), server.URL, payload)

	require.True(t, result.Success)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, http.StatusOK, *result.StatusCode)
	assert.Empty(t, result.Message)

	assert.Equal(t, http.MethodPost, capturedMethod)
	assert.Equal(t, "application/json", capturedContentType)
	assert.Equal(t, "WebhookHub/1.0", capturedUserAgent)
	assert.Equal(t, payload, capturedBody)
}

func TestClient_Post_SuccessRange(t *testing.T) {
	t.Parallel()

	for _, status := range []int{200, 201, 202, 204} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := deliveryclient.New()
		result := client.Post(context.Background(), server.URL, []byte(`{}`))

		require.True(t, result.Success, "status %d should succeed", status)
		require.NotNil(t, result.StatusCode)
		assert.Equal(t, status, *result.StatusCode)

		client.Close()
		server.Close()
	}
}

func TestClient_Post_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"server error", http.StatusInternalServerError, "boom", true},
		{"bad gateway", http.StatusBadGateway, "", true},
		{"service unavailable", http.StatusServiceUnavailable, "maintenance", true},
		{"not found", http.StatusNotFound, "no such hook", false},
		{"bad request", http.StatusBadRequest, "unparseable", false},
		{"gone", http.StatusGone, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := deliveryclient.New()
			defer client.Close()

			result := client.Post(context.Background(), server.URL, []byte(`{}`))

			require.False(t, result.Success)
			require.NotNil(t, result.StatusCode)
			assert.Equal(t, tt.status, *result.StatusCode)
			assert.Equal(t, tt.retryable, result.Retryable)
			assert.Contains(t, result.Message, "HTTP")
			if tt.body != "" {
				assert.Contains(t, result.Message, tt.body)
			}
		})
	}
}

func TestClient_Post_BodyExcerptTruncated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	client := deliveryclient.New()
	defer client.Close()

	result := client.Post(context.Background(), server.URL, []byte(`{}`))

	require.False(t, result.Success)
	assert.LessOrEqual(t, len(result.Message), len("HTTP 500: ")+512)
}

func TestClient_Post_ConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := deliveryclient.New()
	defer client.Close()

	result := client.Post(context.Background(), url, []byte(`{}`))

	require.False(t, result.Success)
	assert.Nil(t, result.StatusCode)
	assert.True(t, result.Retryable)
	assert.Contains(t, result.Message, "connection_refused")
}

func TestClient_Post_DNSError(t *testing.T) {
	t.Parallel()

	client := deliveryclient.New()
	defer client.Close()

	result := client.Post(context.Background(), "http://nonexistent.invalid/webhook", []byte(`{}`))

	require.False(t, result.Success)
	assert.Nil(t, result.StatusCode)
	assert.True(t, result.Retryable)
	assert.Contains(t, result.Message, "dns_error")
}

func TestClient_Post_Timeout(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-done
	}))
	defer server.Close()
	defer close(done)

	client := deliveryclient.New()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	result := client.Post(ctx, server.URL, []byte(`{}`))

	require.False(t, result.Success)
	assert.Nil(t, result.StatusCode)
	assert.True(t, result.Retryable)
	assert.Contains(t, result.Message, "timeout")
}
