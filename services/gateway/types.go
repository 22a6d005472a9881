package gateway

import "time"

// MaxOutputTokens is the hard cap on requested completion length
const MaxOutputTokens = 32000

// ChatRequest represents one model invocation. Immutable once constructed.
type ChatRequest struct {
	// Model identifier as known to the gateway (e.g. "openai-o3")
	Model string

	// System is the optional system prompt
	System string

	// Prompt is the user-role message content
	Prompt string

	// MaxTokens limits the response length (capped at MaxOutputTokens)
	MaxTokens int

	// Temperature controls randomness
	Temperature float64
}

// Usage represents token usage statistics reported by the gateway
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the successful result of one model invocation
type Completion struct {
	// Content is the generated text
	Content string

	// Model that produced the completion
	Model string

	// Usage statistics from the response envelope
	Usage Usage

	// Latency of the exchange
	Latency time.Duration
}

// Wire types for the gateway's OpenAI-compatible chat-completion API

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
