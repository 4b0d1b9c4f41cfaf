package logger

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedError struct{ msg string }

func (e *codedError) Error() string        { return e.msg }
func (e *codedError) Unwrap() error        { return nil }
func (e *codedError) Is(target error) bool { return false }

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestExitMethodWithError_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { Initialize("info", "text") })

	ExitMethodWithError("Submit", &codedError{msg: "campaign is full"})
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	ExitMethodWithError("Submit", fmt.Errorf("failed to insert: %w", errors.New("connection reset")))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"method":"Submit"`)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "text")
	t.Cleanup(func() { Initialize("info", "text") })

	WithComponent("identity-consumer").Info("started")
	assert.Contains(t, buf.String(), "component=identity-consumer")
}
