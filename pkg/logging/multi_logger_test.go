package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiLogger_FansOut(t *testing.T) {
	a, b := NewMemoryLogger(), NewMemoryLogger()
	m := NewMultiLogger(a, nil, b)

	m.Info("one")
	m.Warn("two")
	m.Error("three")
	m.Debug("four")

	assert.Len(t, a.Entries(), 4)
	assert.Len(t, b.Entries(), 4)
}

func TestMultiLogger_WithFields(t *testing.T) {
	a := NewMemoryLogger()
	child := NewMultiLogger(a).WithFields(StringField("execution_id", "e1"))
	child.Info("inside")

	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].Fields["execution_id"])
}

func TestMultiLogger_CloseJoinsErrors(t *testing.T) {
	failing := new(mockLogger)
	failing.On("Close").Return(errors.New("disk gone"))

	err := NewMultiLogger(NullLogger{}, failing).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestNullLogger(t *testing.T) {
	var l Logger = NullLogger{}
	l.Info("x")
	l.LogAPIRequest(APIRequestLog{})
	assert.Equal(t, NullLogger{}, l.WithFields(StringField("a", "b")))
	assert.NoError(t, l.Close())
}

func TestMemoryLogger_Count(t *testing.T) {
	m := NewMemoryLogger()
	m.Warn("upload failed for a.png")
	m.Warn("upload failed for b.png")
	m.Info("upload failed? no")

	assert.Equal(t, 2, m.Count(LevelWarn, "upload failed"))
}
