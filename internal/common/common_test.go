package common

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFromContext(ctx))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(ctx, "abc")))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("pipeline.read.warning", "req_id", "r1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline.read.warning", entry["msg"])
	assert.Equal(t, "r1", entry["req_id"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Level: "DEBUG", Format: "text"}, &buf).Debug("reader.cache.hit")
	assert.Contains(t, buf.String(), "msg=reader.cache.hit")
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator().
		Field("a", "", Required).
		Field("b", "x", OneOf("y", "z")).
		Field("c", 2.5, Between(0, 2)).
		Field("d", time.Duration(0), Positive).
		Field("e", -1, NonNegative).
		Field("ok", "y", Required, OneOf("y"))

	require.True(t, v.HasErrors())
	fields := make([]string, 0, len(v.Errors()))
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, fields)
	assert.Contains(t, v.ErrorMessage(), "must be one of y, z")
	assert.Equal(t, "", NewValidator().ErrorMessage())
}
