package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	reset  = "\033[0m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// prettyHandler writes single-line coloured records for terminals:
//
//	15:04:05 INFO  request completed method=GET status=200
type prettyHandler struct {
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	prefix string
	mu     *sync.Mutex
}

func newPrettyHandler(w io.Writer, level slog.Level) *prettyHandler {
	return &prettyHandler{
		out:   w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(dim + r.Time.Format("15:04:05") + reset + " ")
	buf.WriteString(levelTag(r.Level))
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := *h
		if a.Key != "" {
			sub.prefix = h.prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			sub.writeAttr(buf, ga)
		}
		return
	}

	val := a.Value.String()
	if a.Value.Kind() == slog.KindString && strings.ContainsAny(val, " \t\"") {
		val = fmt.Sprintf("%q", val)
	}
	fmt.Fprintf(buf, " %s%s%s=%s", dim, h.prefix+a.Key, reset, val)
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func levelTag(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return cyan + "DEBUG" + reset
	case level < slog.LevelWarn:
		return green + "INFO " + reset
	case level < slog.LevelError:
		return yellow + "WARN " + reset
	default:
		return red + "ERROR" + reset
	}
}
