package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RedactsCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("connecting", "database_url", "postgres://u:p@h/db", "GEMINI_API_KEY", "abc", "profile", "block-v1")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["database_url"])
	assert.Equal(t, "[REDACTED]", fields["GEMINI_API_KEY"])
	assert.Equal(t, "block-v1", fields["profile"])
}

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With("run_id", "r1")

	l.Warn("domain zeroed", "domain", 3)
	l.Error("failed")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "r1", logs.All()[0].ContextMap()["run_id"])
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["domain"])
	assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
		l.With("k", "v").Info("x")
		l.Sync()
	})
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode, true)
		require.NoError(t, err)
		assert.NotNil(t, l.SugaredLogger)
	}
	assert.NotNil(t, Nop())
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"token", "t", "dangling"})
	assert.Equal(t, []interface{}{"token", "[REDACTED]", "dangling"}, out)
}
