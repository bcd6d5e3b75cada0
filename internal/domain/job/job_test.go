package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/pkg/errors"
)

func TestNewJob(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{"description":"renovasi dapur"}`))
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, 0, j.Progress)
	assert.NoError(t, j.Validate())
}

func TestHappyPathLifecycle(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))

	require.NoError(t, j.Start())
	assert.Equal(t, StatusProcessing, j.Status)
	assert.Equal(t, ProgressStarted, j.Progress)

	require.NoError(t, j.Advance(ProgressGenerating, "generating bill of materials"))
	require.NoError(t, j.Advance(ProgressPricing, "resolving prices"))
	assert.Equal(t, ProgressPricing, j.Progress)

	require.NoError(t, j.Complete(json.RawMessage(`{"grand_total":1}`)))
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, 100, j.Progress)
	assert.NotNil(t, j.CompletedAt)
	assert.NoError(t, j.Validate())
}

func TestProgressMonotonic(t *testing.T) {
	j := New(KindBoq, json.RawMessage(`{}`))
	require.NoError(t, j.Start())
	require.NoError(t, j.Advance(50, "halfway"))

	// A retried step reporting lower progress is clamped, not applied.
	require.NoError(t, j.Advance(30, "retrying item"))
	assert.Equal(t, 50, j.Progress)
	assert.Equal(t, "retrying item", j.Message)

	require.NoError(t, j.Advance(200, "over"))
	assert.Equal(t, 100, j.Progress)
}

func TestFail(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))
	require.NoError(t, j.Start())
	require.NoError(t, j.Advance(42, "pricing"))
	require.NoError(t, j.Fail("generator returned unusable output"))

	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, 42, j.Progress, "progress frozen at last value")
	assert.Nil(t, j.Result)
	assert.NotEmpty(t, j.ErrorMessage)
	assert.NoError(t, j.Validate())
}

func TestFailDefaultsMessage(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))
	require.NoError(t, j.Start())
	require.NoError(t, j.Fail(""))
	assert.Equal(t, "processing failed", j.ErrorMessage)
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	completed := New(KindEstimate, json.RawMessage(`{}`))
	require.NoError(t, completed.Start())
	require.NoError(t, completed.Complete(json.RawMessage(`{}`)))

	assert.True(t, errors.IsCode(completed.Start(), errors.ErrCodeJobInvalidState))
	assert.True(t, errors.IsCode(completed.Advance(99, "x"), errors.ErrCodeJobInvalidState))
	assert.True(t, errors.IsCode(completed.Fail("x"), errors.ErrCodeJobInvalidState))

	failed := New(KindBoq, json.RawMessage(`{}`))
	require.NoError(t, failed.Start())
	require.NoError(t, failed.Fail("boom"))
	assert.Error(t, failed.Complete(json.RawMessage(`{}`)))
	assert.Error(t, failed.Fail("again"))
}

func TestCompleteRequiresResult(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))
	require.NoError(t, j.Start())
	assert.True(t, errors.IsCode(j.Complete(nil), errors.ErrCodeJobResultCorrupted))
}

func TestStartRequiresPending(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))
	require.NoError(t, j.Start())
	assert.Error(t, j.Start(), "double dispatch rejected")
}

func TestPricingProgress(t *testing.T) {
	assert.Equal(t, ProgressPricing, PricingProgress(0, 10))
	assert.Equal(t, ProgressTotals, PricingProgress(10, 10))
	assert.Equal(t, ProgressPricing, PricingProgress(3, 0))

	mid := PricingProgress(5, 10)
	assert.Greater(t, mid, ProgressPricing)
	assert.Less(t, mid, ProgressTotals)

	// Monotone in current.
	prev := 0
	for i := 0; i <= 20; i++ {
		p := PricingProgress(i, 20)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestValidateInvariants(t *testing.T) {
	j := New(KindEstimate, json.RawMessage(`{}`))
	j.Result = json.RawMessage(`{}`)
	assert.Error(t, j.Validate(), "result without completed status")

	j = New(KindEstimate, json.RawMessage(`{}`))
	j.ErrorMessage = "x"
	assert.Error(t, j.Validate(), "error_message without failed status")

	j = New(Kind("mystery"), nil)
	assert.Error(t, j.Validate())
}
