package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONWithScopedFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithLevel("debug"))

	scoped := l.WithSessionKey("s1").WithBackendID("kiro-cli")
	scoped.Info("turn started", "mode", "default")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "s1", record["session_key"])
	assert.Equal(t, "kiro-cli", record["backend"])
	assert.Equal(t, "default", record["mode"])
}

func TestLogger_WarnBelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithLevel("error"))

	l.Warn("should not appear")

	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestLogger_NilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("noop")
		l.WithSessionKey("s1").Error("still noop")
	})
}

func TestLogger_DerivedLoggerDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithLevel("debug"))

	_ = l.WithSessionKey("s1")
	l.Info("unscoped")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	_, hasKey := record["session_key"]
	assert.False(t, hasKey, "deriving a scoped logger must not affect the parent")
}
