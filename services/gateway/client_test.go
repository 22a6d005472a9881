package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"go.uber.org/zap"
)

func testGatewayConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Timeout:         5 * time.Second,
		MaxConns:        10,
		MaxIdleConns:    5,
		IdleConnTimeout: 90 * time.Second,
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(testGatewayConfig(baseURL), zap.NewNop(), observability.NewNopMetrics())
}

func successBody(model, content string) string {
	resp := chatCompletionResponse{
		ID:    "chatcmpl-123",
		Model: model,
		Choices: []chatChoice{
			{Index: 0, Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: Usage{PromptTokens: 25, CompletionTokens: 150, TotalTokens: 175},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestChatCompletionSuccess(t *testing.T) {
	var gotAuth string
	var gotBody chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody("openai-o3", "Step 1: do the thing.")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	completion, err := client.ChatCompletion(context.Background(), &ChatRequest{
		Model:       "openai-o3",
		System:      "You are an expert planning agent.",
		Prompt:      "Plan a database migration",
		MaxTokens:   32000,
		Temperature: 0.1,
	})

	require.NoError(t, err)
	assert.Equal(t, "Step 1: do the thing.", completion.Content)
	assert.Equal(t, "openai-o3", completion.Model)
	assert.Equal(t, 175, completion.Usage.TotalTokens)
	assert.Greater(t, completion.Latency, time.Duration(0))

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "openai-o3", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Equal(t, 32000, gotBody.MaxTokens)
	assert.InDelta(t, 0.1, gotBody.Temperature, 0.001)
}

func TestChatCompletionStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{
			name:     "500 is transient",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"message":"upstream exploded","type":"server_error"}}`,
			wantKind: KindTransient,
		},
		{
			name:     "503 is transient",
			status:   http.StatusServiceUnavailable,
			body:     "service unavailable",
			wantKind: KindTransient,
		},
		{
			name:     "429 is transient",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"rate limited","type":"rate_limit"}}`,
			wantKind: KindTransient,
		},
		{
			name:     "401 is non-retryable",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"invalid api key","type":"auth_error"}}`,
			wantKind: KindNonRetryable,
		},
		{
			name:     "403 is non-retryable",
			status:   http.StatusForbidden,
			body:     `{"error":{"message":"forbidden","type":"auth_error"}}`,
			wantKind: KindNonRetryable,
		},
		{
			name:     "400 is non-retryable",
			status:   http.StatusBadRequest,
			body:     `{"error":{"message":"unknown model","type":"invalid_request_error"}}`,
			wantKind: KindNonRetryable,
		},
		{
			name:     "404 is non-retryable",
			status:   http.StatusNotFound,
			body:     "not found",
			wantKind: KindNonRetryable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			completion, err := client.ChatCompletion(context.Background(), &ChatRequest{
				Model:  "openai-o3",
				Prompt: "hello",
			})

			require.Error(t, err)
			assert.Nil(t, completion)
			assert.Equal(t, tt.wantKind, KindOf(err))

			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.status, gwErr.StatusCode)
			assert.Equal(t, "openai-o3", gwErr.Model)
		})
	}
}

func TestChatCompletionNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := newTestClient(srv.URL)
	_, err := client.ChatCompletion(context.Background(), &ChatRequest{Model: "openai-o3", Prompt: "hello"})

	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestChatCompletionContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(srv.URL)
	_, err := client.ChatCompletion(ctx, &ChatRequest{Model: "openai-o3", Prompt: "hello"})

	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestChatCompletionMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{not json"},
		{name: "no choices", body: `{"id":"x","model":"openai-o3","choices":[],"usage":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			_, err := client.ChatCompletion(context.Background(), &ChatRequest{Model: "openai-o3", Prompt: "hello"})

			require.Error(t, err)
			assert.Equal(t, KindNonRetryable, KindOf(err))
		})
	}
}

func TestChatCompletionMaxTokensCap(t *testing.T) {
	client := newTestClient("http://localhost:1")
	_, err := client.ChatCompletion(context.Background(), &ChatRequest{
		Model:     "openai-o3",
		Prompt:    "hello",
		MaxTokens: MaxOutputTokens + 1,
	})

	require.Error(t, err)
	assert.Equal(t, KindNonRetryable, KindOf(err))
}

func TestChatCompletionOmitsEmptySystemMessage(t *testing.T) {
	var gotBody chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(successBody("openai-o3", "ok")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ChatCompletion(context.Background(), &ChatRequest{Model: "openai-o3", Prompt: "hello"})

	require.NoError(t, err)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
}

func TestIsAvailable(t *testing.T) {
	t.Run("healthy gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/models", r.URL.Path)
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		assert.True(t, newTestClient(srv.URL).IsAvailable(context.Background()))
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		assert.False(t, newTestClient(srv.URL).IsAvailable(context.Background()))
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(&Error{Kind: KindTransient}))
	assert.Equal(t, KindNonRetryable, KindOf(errors.New("plain error")))
	assert.Equal(t, KindTransient, KindOf(fmtWrap(&Error{Kind: KindTransient})))
}

func fmtWrap(err error) error {
	return &wrapped{err}
}

type wrapped struct{ inner error }

func (w *wrapped) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrapped) Unwrap() error { return w.inner }
