package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_LogsJSONWithoutTraceContext(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewWithWriter(buf, slog.LevelDebug)

	l.Warn(context.Background(), "workflow action denied", "action", "approve_document")

	output := buf.String()
	assert.Contains(t, output, `"msg":"workflow action denied"`)
	assert.Contains(t, output, `"service":"practice-governance"`)
	assert.Contains(t, output, `"action":"approve_document"`)
	assert.NotContains(t, output, "trace_id")
}

func TestSlogLogger_LogsWithTraceIDWhenSegmentExists(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewWithWriter(buf, slog.LevelDebug)

	ctx, seg := xray.BeginSegment(context.Background(), "test-segment")
	defer seg.Close(nil)

	l.Info(ctx, "trace message")

	if !strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("expected trace_id in output: %s", buf.String())
	}
}

func TestSlogLogger_RespectsLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewWithWriter(buf, ParseLevel("warn"))

	l.Debug(context.Background(), "surface access denied")
	l.Info(context.Background(), "document created")
	assert.Empty(t, buf.String())

	l.Error(context.Background(), "audit append failed")
	assert.Contains(t, buf.String(), "audit append failed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
