package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) Info(msg string, fields ...Field)  { m.Called(msg, fields) }
func (m *mockLogger) Warn(msg string, fields ...Field)  { m.Called(msg, fields) }
func (m *mockLogger) Error(msg string, fields ...Field) { m.Called(msg, fields) }
func (m *mockLogger) Debug(msg string, fields ...Field) { m.Called(msg, fields) }

func (m *mockLogger) WithFields(fields ...Field) Logger {
	args := m.Called(fields)
	return args.Get(0).(Logger)
}

func (m *mockLogger) LogAPIRequest(req APIRequestLog)   { m.Called(req) }
func (m *mockLogger) LogAPIResponse(resp APIResponseLog) { m.Called(resp) }

func (m *mockLogger) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"email", "login as qa.user+1@corp.example.io now", "login as ***@***.com now"},
		{"cpf", "cpf 123.456.789-00 found", "cpf ***.***.***-** found"},
		{"password json", `{"password": "hunter2"}`, `{"password": "******"}`},
		{"password assign", `password='s3cr3t'`, `password='******'`},
		{"bearer", "Authorization: Bearer abc.def-ghi==", "Authorization: Bearer ******"},
		{"plain", "nothing sensitive", "nothing sensitive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestRedactingLogger_RedactsMessage(t *testing.T) {
	inner := new(mockLogger)
	logger := NewRedactingLogger(inner, "azure-pat-0123456789", "")

	inner.On("Info", "token: azur****************", mock.Anything).Return()

	logger.Info("token: azure-pat-0123456789")
	inner.AssertExpectations(t)
}

func TestRedactingLogger_RedactsStringFields(t *testing.T) {
	inner := new(mockLogger)
	logger := NewRedactingLogger(inner, "supersecretkey")

	inner.On("Error", "msg", mock.MatchedBy(func(fields []Field) bool {
		return len(fields) == 2 &&
			fields[0].Value == "supe**********" &&
			fields[1].Value == 42
	})).Return()

	logger.Error("msg", StringField("k", "supersecretkey"), IntField("n", 42))
	inner.AssertExpectations(t)
}

func TestRedactingLogger_WithFieldsKeepsSecrets(t *testing.T) {
	mem := NewMemoryLogger()
	logger := NewRedactingLogger(mem, "hidden-value")

	child := logger.WithFields(StringField("user", "someone@example.com"))
	child.Warn("hidden-value leaked?")

	entries := mem.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hidd******** leaked?", entries[0].Message)
	assert.Equal(t, "***@***.com", entries[0].Fields["user"])
}

func TestRedactingLogger_APIRequestHeaders(t *testing.T) {
	inner := new(mockLogger)
	logger := NewRedactingLogger(inner)

	inner.On("LogAPIRequest", mock.MatchedBy(func(r APIRequestLog) bool {
		return r.Headers["Authorization"] == "****" &&
			r.Headers["Content-Type"] == "application/json"
	})).Return()

	logger.LogAPIRequest(APIRequestLog{
		Headers: map[string]string{
			"Authorization": "Basic OnRva2Vu",
			"Content-Type":  "application/json",
		},
	})
	inner.AssertExpectations(t)
}

func TestRedactingLogger_Close(t *testing.T) {
	inner := new(mockLogger)
	inner.On("Close").Return(nil)
	assert.NoError(t, NewRedactingLogger(inner).Close())
	inner.AssertExpectations(t)
}

func TestRedactHeaders_Nil(t *testing.T) {
	assert.Nil(t, redactHeaders(nil))
}
