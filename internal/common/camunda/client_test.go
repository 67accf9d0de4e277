package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(stderrors.New("deadline exceeded"), "complete", 0)
	assert.Equal(t, errors.ErrCodeBackendTimeout, errors.CodeOf(err))

	err = mapZeebeError(stderrors.New("connection reset by peer"), "complete", 2)
	assert.Equal(t, errors.ErrCodeBackendFailure, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
	assert.Contains(t, err.Error(), "after 3 attempts")

	err = mapZeebeError(stderrors.New("job not found"), "complete", 0)
	assert.Equal(t, errors.ErrCodeBackendFailure, errors.CodeOf(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestExecuteWithRetry(t *testing.T) {
	calls := 0

	err := executeWithRetry(context.Background(), testRetryConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("unavailable")
		}
		return nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0

	err := executeWithRetry(context.Background(), testRetryConfig(3), func(context.Context) error {
		calls++
		return stderrors.New("permission denied")
	}, "deploy")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, errors.IsRetryable(err))
}

func TestExecuteWithRetry_Exhausted(t *testing.T) {
	calls := 0

	err := executeWithRetry(context.Background(), testRetryConfig(2), func(context.Context) error {
		calls++
		return stderrors.New("connection refused")
	}, "publish")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.IsRetryable(err))
}

func TestExecuteWithRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := executeWithRetry(ctx, &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return stderrors.New("unavailable")
	}, "complete job")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestClientConfigFromConfig(t *testing.T) {
	cc := ClientConfigFromConfig(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 1500})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.True(t, cc.UsePlaintextConnection)
	assert.Equal(t, 1500*time.Millisecond, cc.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cc.RetryConfig)
}
