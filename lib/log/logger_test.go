package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerFormat(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})).With("module", "encdec")

	logger.Warn("possible YUV format problem", "pixel_stride", 1, "kind", "chroma")
	line := out.String()

	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "WARN [encdec] possible YUV format problem kind=chroma pixel_stride=1\n")
	assert.NotContains(t, line, "\033[")
}

func TestHandlerLevel(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("dropped")
	assert.Empty(t, out.String())
	logger.Error("kept", "err", "boom")
	assert.Contains(t, out.String(), "ERROR kept err=boom")
}

func TestHandlerGroupsAndAttrs(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, nil)).With("job", "preview")
	logger.Info("job done", "bytes", 1024)
	assert.Contains(t, out.String(), "INFO job done bytes=1024 job=preview")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)

	l, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
