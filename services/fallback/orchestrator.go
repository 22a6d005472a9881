// Package fallback orchestrates one completion across an ordered list of
// candidate models: each candidate runs under the retry policy, the first
// success wins, and the call fails only when every candidate is exhausted.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/services/gateway"
	"github.com/upb/planning-agent/services/retry"
	"go.uber.org/zap"
)

// CandidateFailure summarizes one candidate model's terminal failure
type CandidateFailure struct {
	Model    string            `json:"model"`
	Kind     gateway.ErrorKind `json:"kind"`
	Message  string            `json:"message"`
	Attempts int               `json:"attempts"`
}

// AllExhaustedError is the terminal failure after every candidate model
// failed. It carries the ordered per-candidate failure list for diagnosis.
type AllExhaustedError struct {
	Failures []CandidateFailure
}

// Error implements the error interface
func (e *AllExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s (%s, %d attempts)", f.Model, f.Message, f.Kind, f.Attempts)
	}
	return "all candidate models failed: " + strings.Join(parts, "; ")
}

// ErrorKind returns the failure classification
func (e *AllExhaustedError) ErrorKind() gateway.ErrorKind {
	return gateway.KindAllExhausted
}

// Invoker performs one classified chat-completion exchange
type Invoker interface {
	ChatCompletion(ctx context.Context, req *gateway.ChatRequest) (*gateway.Completion, error)
}

// Request describes one orchestrated completion across candidate models
type Request struct {
	// Candidates is the ordered model preference list
	Candidates []string

	// System is the optional system prompt
	System string

	// Prompt is the user prompt text
	Prompt string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness
	Temperature float64
}

// Orchestrator tries candidate models in order until one succeeds. A
// circuit breaker per model skips candidates that keep failing across
// calls so a dead model does not cost its full retry budget every time.
type Orchestrator struct {
	invoker Invoker
	policy  *retry.Policy
	logger  *zap.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewOrchestrator creates a fallback orchestrator
func NewOrchestrator(invoker Invoker, policy *retry.Policy, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		invoker:  invoker,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Complete runs the invoker under the retry policy for each candidate in
// order and returns the first success. Any failure kind, including
// non-retryable ones, moves on to the next candidate; the call as a whole
// fails only when the candidate list is exhausted. Exactly one terminal
// result is produced per call.
func (o *Orchestrator) Complete(ctx context.Context, req *Request) (*gateway.Completion, error) {
	if len(req.Candidates) == 0 {
		return nil, &gateway.Error{Kind: gateway.KindNonRetryable, Message: "no candidate models configured"}
	}

	log := observability.WithCorrelation(ctx, o.logger)
	log.Info("starting completion with model fallback",
		zap.Strings("candidates", req.Candidates),
		zap.Int("prompt_length", len(req.Prompt)))

	failures := make([]CandidateFailure, 0, len(req.Candidates))

	for i, model := range req.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if i > 0 {
			o.metrics.FallbackSwitches.Inc()
			log.Info("falling back to next candidate", zap.String("model", model))
		}

		result, err := o.breaker(model).Execute(func() (interface{}, error) {
			return o.policy.Do(ctx, model, func(ctx context.Context) (*gateway.Completion, error) {
				return o.invoker.ChatCompletion(ctx, &gateway.ChatRequest{
					Model:       model,
					System:      req.System,
					Prompt:      req.Prompt,
					MaxTokens:   req.MaxTokens,
					Temperature: req.Temperature,
				})
			})
		})
		if err == nil {
			completion := result.(*gateway.Completion)
			log.Info("completion succeeded",
				zap.String("model", completion.Model),
				zap.Int("candidate_index", i),
				zap.Int("total_tokens", completion.Usage.TotalTokens),
				observability.ElapsedField(ctx))
			return completion, nil
		}

		// Cancellation of the external call is not a model failure
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		failure := newCandidateFailure(model, err)
		failures = append(failures, failure)
		log.Warn("candidate model failed",
			zap.String("model", model),
			zap.String("error_kind", string(failure.Kind)),
			zap.Int("attempts", failure.Attempts),
			zap.Error(err))
	}

	terminal := &AllExhaustedError{Failures: failures}
	log.Error("all candidate models failed",
		zap.Int("candidates", len(req.Candidates)),
		observability.ElapsedField(ctx),
		zap.Error(terminal))
	return nil, terminal
}

// breaker returns the circuit breaker for a model, creating it on first use
func (o *Orchestrator) breaker(model string) *gobreaker.CircuitBreaker {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cb, ok := o.breakers[model]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        model,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("model circuit state changed",
				zap.String("model", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	o.breakers[model] = cb
	return cb
}

// newCandidateFailure builds the diagnostic entry for one failed candidate
func newCandidateFailure(model string, err error) CandidateFailure {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return CandidateFailure{
			Model:    model,
			Kind:     gateway.KindTransient,
			Message:  "circuit open, model skipped",
			Attempts: 0,
		}
	}

	failure := CandidateFailure{
		Model:    model,
		Kind:     gateway.KindOf(err),
		Message:  err.Error(),
		Attempts: 1,
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		failure.Attempts = exhausted.Attempts
	}
	return failure
}
