package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// consoleHandler renders compact single-line records for interactive use:
//
//	15:04:05 INFO  channel went on-air channel=na01 new_status=on-air
type consoleHandler struct {
	mu     *sync.Mutex
	output io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
}

func newConsoleHandler(output io.Writer, level slog.Leveler) *consoleHandler {
	return &consoleHandler{
		mu:     &sync.Mutex{},
		output: output,
		level:  level,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	if !record.Time.IsZero() {
		builder.WriteString(record.Time.Format("15:04:05"))
		builder.WriteByte(' ')
	}
	builder.WriteString(fmt.Sprintf("%-5s", record.Level.String()))
	builder.WriteByte(' ')
	builder.WriteString(record.Message)

	for _, attr := range h.attrs {
		appendAttr(&builder, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&builder, attr)
		return true
	})
	builder.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, builder.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(string) slog.Handler {
	// Groups are flattened; console output stays single-line.
	return h
}

func appendAttr(builder *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	builder.WriteByte(' ')
	builder.WriteString(attr.Key)
	builder.WriteByte('=')
	value := attr.Value.String()
	if strings.ContainsAny(value, " \t") {
		builder.WriteString(fmt.Sprintf("%q", value))
	} else {
		builder.WriteString(value)
	}
}
