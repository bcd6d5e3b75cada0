package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bangunhq/estimator/internal/config"
)

func observedLogger(t *testing.T) (Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel) // capture all levels
	return NewLoggerFromCore(core), logs
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	l, err = NewLogger(config.LogConfig{Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestFieldsReachEntries(t *testing.T) {
	l, logs := observedLogger(t)

	l.Info("resolved price",
		String("canonical", "semen 50kg"),
		Float64("confidence", 0.95),
		Int("sample_size", 3),
		Bool("fresh", true),
		Duration("elapsed", 120*time.Millisecond),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "resolved price", entry.Message)
	m := entry.ContextMap()
	assert.Equal(t, "semen 50kg", m["canonical"])
	assert.Equal(t, 0.95, m["confidence"])
	assert.Equal(t, true, m["fresh"])
}

func TestErrField(t *testing.T) {
	assert.Equal(t, "error", Err(nil).Key)
	assert.Equal(t, "<nil>", Err(nil).Value)

	e := errors.New("boom")
	f := Err(e)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "boom", f.Value)
}

func TestWithAddsPersistentFields(t *testing.T) {
	l, logs := observedLogger(t)
	child := l.With(String("job_id", "j-1"))

	child.Info("started")
	child.Warn("slow item")

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "j-1", entry.ContextMap()["job_id"])
	}
}

func TestNamed(t *testing.T) {
	l, logs := observedLogger(t)
	l.Named("pricing").Info("hit")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "pricing", logs.All()[0].LoggerName)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x", String("k", "v"))
		l.With(Int("n", 1)).Named("a").Error("x")
	})
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l, _ := observedLogger(t)
	SetDefault(l)
	assert.Equal(t, l, Default())

	// nil is ignored
	SetDefault(nil)
	assert.Equal(t, l, Default())
}
