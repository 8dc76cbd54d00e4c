package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"duration", []any{"d", time.Second}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"multiple errors", []any{err, errors.New("again")}, 2},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value", true, 99}, 2},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
		{"string slice", []any{"slots", []string{"takePicture", "imageProcess"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			assert.Len(t, fields, tt.want)
			for _, f := range fields {
				assert.NotEmpty(t, f.Key, "field has empty key: %+v", f)
			}
		})
	}
}

func TestFieldTypes(t *testing.T) {
	assert.Equal(t, zapcore.StringType, field("k", "v").Type)
	assert.Equal(t, zapcore.BoolType, field("k", true).Type)
	assert.Equal(t, zapcore.DurationType, field("k", time.Second).Type)
	assert.Equal(t, zapcore.ErrorType, field("k", errors.New("x")).Type)
}

func TestSetLevel(t *testing.T) {
	l := NewLogger(&Options{Level: "info", Format: "json", OutputPaths: []string{"stderr"}}).(*zapLogger)
	assert.False(t, l.core.Core().Enabled(zapcore.DebugLevel))

	l.level.SetLevel(parseLevel("debug"))
	assert.True(t, l.core.Core().Enabled(zapcore.DebugLevel))

	named := l.WithName("dispatch").(*zapLogger)
	assert.True(t, named.core.Core().Enabled(zapcore.DebugLevel), "named loggers share the level")
	assert.True(t, named.Logr().Enabled())

	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
