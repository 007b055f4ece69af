package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := NewSlogLogger(slog.New(h))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "k", 1)
	log.Info(ctx, "inf")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err")

	out := buf.String()
	assert.Contains(t, out, "dbg")
	assert.Contains(t, out, "inf")
	assert.Contains(t, out, "wrn")
	assert.Contains(t, out, "err")
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	child := log.With("component", "versions")
	child.Info(context.Background(), "hello")

	assert.Contains(t, buf.String(), "component=versions")
}
