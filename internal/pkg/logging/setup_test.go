package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiHandler_HandleFansOutToEveryHandler(t *testing.T) {
	var bufA, bufB bytes.Buffer
	m := &MultiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bufA, nil),
		slog.NewTextHandler(&bufB, nil),
	}}
	logger := slog.New(m)
	logger.Info("hello", "key", "value")

	if !strings.Contains(bufA.String(), "hello") || !strings.Contains(bufB.String(), "hello") {
		t.Errorf("expected both handlers to receive the record, got %q / %q", bufA.String(), bufB.String())
	}
}

func TestMultiHandler_EnabledIfAnyHandlerEnabled(t *testing.T) {
	m := &MultiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}
	if !m.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected Enabled to be true when at least one handler accepts the level")
	}
}

func TestMultiHandler_WithAttrsPropagatesToEachHandler(t *testing.T) {
	var buf bytes.Buffer
	m := &MultiHandler{handlers: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	withAttrs := m.WithAttrs([]slog.Attr{slog.String("service", "oddwatch")})
	logger := slog.New(withAttrs)
	logger.Info("started")
	if !strings.Contains(buf.String(), "service=oddwatch") {
		t.Errorf("expected propagated attrs in output, got %q", buf.String())
	}
}

func TestMultiHandler_WithGroupPropagatesToEachHandler(t *testing.T) {
	var buf bytes.Buffer
	m := &MultiHandler{handlers: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	withGroup := m.WithGroup("batch")
	logger := slog.New(withGroup)
	logger.Info("committed", "id", 1)
	if !strings.Contains(buf.String(), "batch.id=1") {
		t.Errorf("expected grouped attrs in output, got %q", buf.String())
	}
}
