// Package gateway implements the resilient invocation client for the remote
// model-serving gateway: a pooled HTTP transport and a single-exchange
// invoker that classifies every outcome for the retry and fallback layers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"go.uber.org/zap"
)

// Client performs single chat-completion exchanges against the model gateway
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewClient creates a new gateway client with its own pooled transport
func NewClient(cfg config.GatewayConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: NewHTTPClient(cfg),
		logger:     logger,
		metrics:    metrics,
	}
}

// ChatCompletion performs exactly one request/response exchange and
// classifies the outcome. It never retries; retrying is the retry policy's
// job and depends entirely on the ErrorKind assigned here.
func (c *Client) ChatCompletion(ctx context.Context, req *ChatRequest) (*Completion, error) {
	start := time.Now()

	if req.MaxTokens > MaxOutputTokens {
		return nil, &Error{
			Kind:    KindNonRetryable,
			Model:   req.Model,
			Message: "max_tokens exceeds the gateway limit",
		}
	}

	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, &Error{Kind: KindNonRetryable, Model: req.Model, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNonRetryable, Model: req.Model, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	log := observability.WithCorrelation(ctx, c.logger)
	log.Debug("sending chat completion request",
		zap.String("model", req.Model),
		zap.Int("prompt_length", len(req.Prompt)),
		zap.Int("max_tokens", req.MaxTokens))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Connection, DNS and timeout failures land here
		return nil, &Error{Kind: KindTransient, Model: req.Model, Message: "gateway request failed", Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Model: req.Model, Message: "failed to read gateway response", Cause: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, classifyStatus(req.Model, httpResp.StatusCode, respBody)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Kind: KindNonRetryable, Model: req.Model, StatusCode: httpResp.StatusCode, Message: "malformed gateway response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindNonRetryable, Model: req.Model, StatusCode: httpResp.StatusCode, Message: "gateway response contains no choices"}
	}

	modelUsed := parsed.Model
	if modelUsed == "" {
		modelUsed = req.Model
	}

	completion := &Completion{
		Content: parsed.Choices[0].Message.Content,
		Model:   modelUsed,
		Usage:   parsed.Usage,
		Latency: time.Since(start),
	}

	c.metrics.TokensConsumed.WithLabelValues(modelUsed, "prompt").Add(float64(completion.Usage.PromptTokens))
	c.metrics.TokensConsumed.WithLabelValues(modelUsed, "completion").Add(float64(completion.Usage.CompletionTokens))

	log.Debug("chat completion request succeeded",
		zap.String("model", modelUsed),
		zap.Duration("latency", completion.Latency),
		zap.Int("total_tokens", completion.Usage.TotalTokens))

	return completion, nil
}

// IsAvailable checks if the gateway is currently reachable
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// buildRequest converts the invocation request to the gateway wire format
func (c *Client) buildRequest(req *ChatRequest) chatCompletionRequest {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	return chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// classifyStatus maps an upstream HTTP status onto the error taxonomy.
// Conservative mapping: 429 and 5xx are transient, everything else in the
// 4xx range is a request or auth problem that a retry cannot fix.
func classifyStatus(model string, status int, body []byte) *Error {
	message := errorMessage(body)

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return &Error{Kind: KindTransient, Model: model, StatusCode: status, Message: message}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindNonRetryable, Model: model, StatusCode: status, Message: "gateway authentication failed: " + message}
	default:
		return &Error{Kind: KindNonRetryable, Model: model, StatusCode: status, Message: message}
	}
}

// errorMessage extracts a human-readable message from an error response body
func errorMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "gateway returned an error with an empty body"
	}
	return msg
}
