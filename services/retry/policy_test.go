package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/services/gateway"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		Jitter:         0,
	}
}

func newTestPolicy() *Policy {
	return NewPolicy(fastRetryConfig(), zap.NewNop(), observability.NewNopMetrics())
}

func transientErr(model string) error {
	return &gateway.Error{Kind: gateway.KindTransient, Model: model, Message: "connection reset"}
}

func nonRetryableErr(model string) error {
	return &gateway.Error{Kind: gateway.KindNonRetryable, Model: model, StatusCode: 401, Message: "invalid api key"}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	policy := newTestPolicy()

	attempts := 0
	completion, err := policy.Do(context.Background(), "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
		attempts++
		return &gateway.Completion{Content: "plan", Model: "openai-o3"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "plan", completion.Content)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	policy := newTestPolicy()

	attempts := 0
	completion, err := policy.Do(context.Background(), "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
		attempts++
		if attempts < 3 {
			return nil, transientErr("openai-o3")
		}
		return &gateway.Completion{Content: "plan", Model: "openai-o3"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "plan", completion.Content)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsTransientFailures(t *testing.T) {
	policy := newTestPolicy()

	attempts := 0
	completion, err := policy.Do(context.Background(), "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
		attempts++
		return nil, transientErr("openai-o3")
	})

	require.Error(t, err)
	assert.Nil(t, completion)
	assert.Equal(t, 3, attempts, "max_attempts transient failures before giving up")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "openai-o3", exhausted.Model)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, gateway.KindExhausted, gateway.KindOf(err))
	assert.True(t, gateway.IsTransient(exhausted.Last))
}

func TestDoDoesNotRetryNonRetryable(t *testing.T) {
	policy := newTestPolicy()

	attempts := 0
	_, err := policy.Do(context.Background(), "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
		attempts++
		return nil, nonRetryableErr("openai-o3")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-retryable failures must not be retried")
	assert.Equal(t, gateway.KindNonRetryable, gateway.KindOf(err))

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDoAbortsOnContextCancellation(t *testing.T) {
	policy := NewPolicy(config.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Hour, // cancellation must cut the backoff sleep short
		MaxBackoff:     time.Hour,
		Multiplier:     2.0,
	}, zap.NewNop(), observability.NewNopMetrics())

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		_, err := policy.Do(ctx, "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
			attempts++
			return nil, transientErr("openai-o3")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	case <-time.After(time.Second):
		t.Fatal("retry did not abort on context cancellation")
	}
}

func TestDoEmitsOneRecordPerAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	policy := NewPolicy(fastRetryConfig(), zap.New(core), observability.NewNopMetrics())

	attempts := 0
	_, err := policy.Do(context.Background(), "openai-o3", func(ctx context.Context) (*gateway.Completion, error) {
		attempts++
		return nil, transientErr("openai-o3")
	})
	require.Error(t, err)

	started := logs.FilterMessage("invocation attempt started").All()
	failed := logs.FilterMessage("invocation attempt failed").All()
	require.Len(t, started, 3)
	require.Len(t, failed, 3)

	for i, entry := range started {
		assert.Equal(t, int64(i+1), entry.ContextMap()["attempt"])
		assert.Equal(t, "openai-o3", entry.ContextMap()["model"])
	}
}

func TestBackoffScheduleBoundsAndGrowth(t *testing.T) {
	// Production defaults: delays must grow strictly and stay within the
	// configured [initial, max] window for attempts 1→2 and 2→3.
	policy := NewPolicy(config.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0,
	}, zap.NewNop(), observability.NewNopMetrics())

	schedule := policy.newBackOff(context.Background())

	first := schedule.NextBackOff()
	second := schedule.NextBackOff()
	third := schedule.NextBackOff()

	assert.Equal(t, 4*time.Second, first)
	assert.Equal(t, 8*time.Second, second)
	assert.Greater(t, second, first)
	assert.GreaterOrEqual(t, first, 4*time.Second)
	assert.LessOrEqual(t, second, 10*time.Second)
	assert.Equal(t, backoff.Stop, third, "only max_attempts-1 delays exist")
}
