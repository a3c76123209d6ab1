package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/llmgateway/gateway"
)

func TestClassifyStatus_RetryableStatuses(t *testing.T) {
	for _, status := range []int{408, 429, 502, 503, 504} {
		kind, retryable := ClassifyStatus(status)
		assert.True(t, retryable, "status %d should be retryable", status)
		assert.NotEmpty(t, kind)
	}
}

func TestClassifyStatus_FatalAuthStatuses(t *testing.T) {
	for _, status := range []int{401, 403} {
		kind, retryable := ClassifyStatus(status)
		assert.False(t, retryable)
		assert.Equal(t, gateway.KindAuthError, kind)
	}
}

func TestClassifyStatus_FatalRequestStatuses(t *testing.T) {
	for _, status := range []int{400, 404} {
		kind, retryable := ClassifyStatus(status)
		assert.False(t, retryable)
		assert.Equal(t, gateway.KindBadRequest, kind)
	}
}

func TestClassifyStatus_UpstreamFatalStatuses(t *testing.T) {
	for _, status := range []int{409, 422, 501} {
		kind, retryable := ClassifyStatus(status)
		assert.False(t, retryable)
		assert.Equal(t, gateway.KindUpstreamFatal, kind)
	}
}

func TestClassifyStatus_Success(t *testing.T) {
	kind, retryable := ClassifyStatus(200)
	assert.Empty(t, kind)
	assert.False(t, retryable)
}

func TestWithRetry_SucceedsWithoutRetryOnFirstSuccess(t *testing.T) {
	calls := 0
	resp, err := WithRetry(context.Background(), RetryPolicy{}, func(ctx context.Context) (any, int, error) {
		calls++
		return "ok", 200, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesOnRetryableStatusThenSucceeds(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	resp, err := WithRetry(context.Background(), policy, func(ctx context.Context) (any, int, error) {
		calls++
		if calls < 2 {
			return nil, 503, errors.New("upstream unavailable")
		}
		return "recovered", 200, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsImmediatelyOnFatalStatus(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	_, err := WithRetry(context.Background(), policy, func(ctx context.Context) (any, int, error) {
		calls++
		return nil, 401, errors.New("invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindAuthError, gwErr.Kind)
}

func TestWithRetry_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	_, err := WithRetry(context.Background(), policy, func(ctx context.Context) (any, int, error) {
		calls++
		return nil, 503, errors.New("still unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindUpstreamError, gwErr.Kind)
}

func TestWithRetry_AbortsOnContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, policy, func(ctx context.Context) (any, int, error) {
		calls++
		return nil, 503, errors.New("still unavailable")
	})
	require.Error(t, err)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindTimeout, gwErr.Kind)
}

func TestBackoffWithJitter_NeverExceedsMaxDelay(t *testing.T) {
	for try := 0; try < 10; try++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, try)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestErrorForKind_DispatchesToNamedConstructor(t *testing.T) {
	assert.Equal(t, gateway.KindRateLimited, errorForKind(gateway.KindRateLimited, "x").Kind)
	assert.Equal(t, gateway.KindAuthError, errorForKind(gateway.KindAuthError, "x").Kind)
	assert.Equal(t, gateway.KindBadRequest, errorForKind(gateway.KindBadRequest, "x").Kind)
	assert.Equal(t, gateway.KindUpstreamFatal, errorForKind(gateway.KindUpstreamFatal, "x").Kind)
	assert.Equal(t, gateway.KindUpstreamError, errorForKind(gateway.KindUpstreamError, "x").Kind)
}
