package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, StringField("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 3}, IntField("n", 3))
	assert.Equal(t, Field{Key: "b", Value: true}, BoolField("b", true))
	assert.Equal(t, 1.5, DurationField("d", 1500*time.Millisecond).Value)
	assert.Equal(t, "boom", ErrorField(errors.New("boom")).Value)
	assert.Equal(t, "<nil>", ErrorField(nil).Value)
}

func TestSessionAndExecutionIDs(t *testing.T) {
	assert.NotEmpty(t, SessionID())
	a, b := NewExecutionID(), NewExecutionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
