package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Options struct {
	Level      slog.Leveler
	TimeFormat string
	NoColor    bool
}

var DefaultOptions = &Options{
	Level:      slog.LevelInfo,
	TimeFormat: "2006-01-02 15:04:05.000",
}

type handler struct {
	opts   Options
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string

	timeColor  *color.Color
	keyColor   *color.Color
	levelColor map[slog.Level]*color.Color
}

// NewHandler returns a colourised human-readable slog handler.
func NewHandler(w io.Writer, opts *Options) slog.Handler {
	if opts == nil {
		opts = DefaultOptions
	}

	h := &handler{
		opts:      *opts,
		w:         w,
		mu:        &sync.Mutex{},
		timeColor: color.New(color.Faint),
		keyColor:  color.New(color.FgCyan),
		levelColor: map[slog.Level]*color.Color{
			slog.LevelDebug: color.New(color.FgMagenta),
			slog.LevelInfo:  color.New(color.FgGreen),
			slog.LevelWarn:  color.New(color.FgYellow),
			slog.LevelError: color.New(color.FgRed, color.Bold),
		},
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.TimeFormat == "" {
		h.opts.TimeFormat = time.DateTime
	}

	return h
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.paint(h.timeColor, r.Time.Format(h.opts.TimeFormat)))
		buf.WriteByte(' ')
	}
	buf.WriteString(h.paint(h.colorFor(r.Level), fmt.Sprintf("%-5s", r.Level.String())))
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	if id := RequestID(ctx); id != "" {
		h.writeAttr(&buf, "request_id", slog.StringValue(id))
	}
	for _, a := range h.attrs {
		h.writeAttr(&buf, a.Key, a.Value)
	}
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		h.appendFlattened(&buf, prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	clone := h.clone()
	prefix := h.groupPrefix()
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, flatten(prefix, a)...)
	}
	return clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *handler) clone() *handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

func (h *handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func (h *handler) appendFlattened(buf *bytes.Buffer, prefix string, a slog.Attr) {
	for _, fa := range flatten(prefix, a) {
		h.writeAttr(buf, fa.Key, fa.Value)
	}
}

func flatten(prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return nil
	}

	if a.Value.Kind() != slog.KindGroup {
		return []slog.Attr{{Key: prefix + a.Key, Value: a.Value}}
	}

	groupPrefix := prefix
	if a.Key != "" {
		groupPrefix = prefix + a.Key + "."
	}

	var out []slog.Attr
	for _, ga := range a.Value.Group() {
		out = append(out, flatten(groupPrefix, ga)...)
	}
	return out
}

func (h *handler) writeAttr(buf *bytes.Buffer, key string, v slog.Value) {
	buf.WriteByte(' ')
	buf.WriteString(h.paint(h.keyColor, key))
	buf.WriteByte('=')
	buf.WriteString(formatValue(v))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = v.String()
	}

	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func (h *handler) colorFor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return h.levelColor[slog.LevelError]
	case level >= slog.LevelWarn:
		return h.levelColor[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return h.levelColor[slog.LevelInfo]
	default:
		return h.levelColor[slog.LevelDebug]
	}
}

func (h *handler) paint(c *color.Color, s string) string {
	if h.opts.NoColor || c == nil {
		return s
	}
	return c.Sprint(s)
}
