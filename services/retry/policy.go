// Package retry wraps a single-model invocation with bounded
// exponential-backoff retry. Only failures classified as transient by the
// gateway client are retried.
package retry

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/services/gateway"
	"go.uber.org/zap"
)

// ExhaustedError reports that every retry attempt for one model failed with
// a transient error
type ExhaustedError struct {
	Model    string
	Attempts int
	Last     error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("model %s exhausted after %d attempts: %v", e.Model, e.Attempts, e.Last)
}

// Unwrap implements error unwrapping
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// ErrorKind returns the failure classification
func (e *ExhaustedError) ErrorKind() gateway.ErrorKind {
	return gateway.KindExhausted
}

// InvokeFunc performs one model invocation attempt
type InvokeFunc func(ctx context.Context) (*gateway.Completion, error)

// Policy retries an invocation on transient failures with exponential
// backoff. Each call owns its own attempt counter and backoff state;
// nothing is shared across concurrent calls.
type Policy struct {
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	multiplier  float64
	jitter      float64
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewPolicy creates a retry policy from configuration
func NewPolicy(cfg config.RetryConfig, logger *zap.Logger, metrics *observability.Metrics) *Policy {
	return &Policy{
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialBackoff,
		max:         cfg.MaxBackoff,
		multiplier:  cfg.Multiplier,
		jitter:      cfg.Jitter,
		logger:      logger,
		metrics:     metrics,
	}
}

// newBackOff builds the per-call backoff schedule. With the default
// configuration the delays are 4s then 8s, growing exponentially and capped
// at the maximum interval.
func (p *Policy) newBackOff(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.initial
	expo.MaxInterval = p.max
	expo.Multiplier = p.multiplier
	expo.RandomizationFactor = p.jitter
	expo.MaxElapsedTime = 0
	expo.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.maxAttempts-1)), ctx)
}

// Do runs fn under the retry policy for the given model. A non-retryable
// failure is returned after the first attempt; a run of transient failures
// ends in an ExhaustedError once the attempt budget is spent. Context
// cancellation aborts both in-flight attempts and pending backoff sleeps.
func (p *Policy) Do(ctx context.Context, model string, fn InvokeFunc) (*gateway.Completion, error) {
	log := observability.WithCorrelation(ctx, p.logger).With(zap.String("model", model))

	attempt := 0
	operation := func() (*gateway.Completion, error) {
		attempt++
		start := time.Now()
		log.Info("invocation attempt started", zap.Int("attempt", attempt))

		completion, err := fn(ctx)
		elapsed := time.Since(start)

		if err != nil {
			kind := gateway.KindOf(err)
			p.metrics.InvocationAttempts.WithLabelValues(model, string(kind)).Inc()
			log.Warn("invocation attempt failed",
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", elapsed),
				zap.String("error_kind", string(kind)),
				zap.Error(err))

			if kind != gateway.KindTransient {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		p.metrics.InvocationAttempts.WithLabelValues(model, "success").Inc()
		p.metrics.InvocationDuration.WithLabelValues(model).Observe(elapsed.Seconds())
		log.Info("invocation attempt succeeded",
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", elapsed),
			zap.Int("total_tokens", completion.Usage.TotalTokens))

		return completion, nil
	}

	completion, err := backoff.RetryWithData(operation, p.newBackOff(ctx))
	if err != nil {
		if gateway.IsTransient(err) {
			exhausted := &ExhaustedError{Model: model, Attempts: attempt, Last: err}
			log.Warn("retry budget exhausted",
				zap.Int("attempts", attempt),
				observability.ElapsedField(ctx),
				zap.Error(exhausted))
			return nil, exhausted
		}
		return nil, err
	}

	return completion, nil
}
