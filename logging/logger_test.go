package logging

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// captureLog 捕获标准库 log 的输出
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
	assert.Equal(t, "warn", WarnLevel.String())
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestStdLogger_LevelAndFields(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()

	l := NewStdLogger("[test]")
	l.Debug(ctx, "hidden")
	l.Info(ctx, "fetched", Int("keys", 3), Error(errors.New("boom")))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INFO] [test] fetched keys=3 error=boom")

	buf.Reset()
	l.SetLevel(DebugLevel)
	child := l.WithFields(String("component", "preload"))
	child.Debug(ctx, "preload fetch", Duration("took", time.Second))
	assert.Equal(t, "[DEBUG] [test] preload fetch component=preload took=1s\n", buf.String())

	// 父 logger 不受子 logger 字段影响
	buf.Reset()
	l.Warn(ctx, "unordered")
	assert.Equal(t, "[WARN] [test] unordered\n", buf.String())
}

func TestNoopLogger(t *testing.T) {
	buf := captureLog(t)
	l := NewNoopLogger()
	l.Error(context.Background(), "x")
	assert.Same(t, l, l.WithFields(String("a", "b")))
	assert.Empty(t, buf.String())
}

func TestGlobalLogger(t *testing.T) {
	orig := GetLogger()
	t.Cleanup(func() { SetLogger(orig) })

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Equal(t, Logger(noop), GetLogger())
	SetLogger(nil)
	assert.Equal(t, Logger(noop), GetLogger())
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core)).WithFields(String("component", "preload"))

	l.Debug(context.Background(), "preload fetch", Int("keys", 2))
	l.Warn(context.Background(), "unordered results", Error(errors.New("late")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "preload fetch", entries[0].Message)
	assert.Equal(t, map[string]any{"component": "preload", "keys": int64(2)}, entries[0].ContextMap())
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "late", entries[1].ContextMap()["error"])
}

func TestNewZap(t *testing.T) {
	l, err := NewZap(Config{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = NewZap(Config{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewZap(Config{Level: "loud"})
	assert.Error(t, err)

	assert.NotNil(t, NewZapLogger(nil).Zap())
}

func BenchmarkStdLogger_WithFields(b *testing.B) {
	l := NewStdLogger("bench")
	for i := 0; i < b.N; i++ {
		l.WithFields(String("k", "v"), Int("n", i))
	}
}
