package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
)

// Logger is the global logger instance
var Logger *slog.Logger

// LoggerName tags every record emitted by the bridge.
const LoggerName = "ScriptBridge"

// loggerKey is the attribute carrying the logger name; it is not rendered.
const loggerKey = "logger"

// Levels beyond slog's own. WARNING is rendered for slog.LevelWarn.
const (
	LevelWarning  = slog.LevelWarn
	LevelCritical = slog.Level(12)
)

var levelsByName = map[string]slog.Level{
	"DEBUG":    slog.LevelDebug,
	"INFO":     slog.LevelInfo,
	"WARNING":  LevelWarning,
	"ERROR":    slog.LevelError,
	"CRITICAL": LevelCritical,
}

// ParseLevel maps a level name, case-insensitively, to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	level, ok := levelsByName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, runtime.NewError(runtime.KindUnknownLogLevel,
			"unknown log level %q (expected DEBUG, INFO, WARNING, ERROR or CRITICAL)", name)
	}
	return level, nil
}

// LevelName renders a level the way the host parses it.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelCritical:
		return "CRITICAL"
	case level >= slog.LevelError:
		return "ERROR"
	case level >= LevelWarning:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// HandlerOptions configure a LineHandler.
type HandlerOptions struct {
	Level slog.Leveler
	Color ColorMode
}

// LineHandler writes one "LEVEL:message" line per record. Attributes are
// appended as key=value pairs.
type LineHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	colors map[string]*color.Color
	name   string
	prefix string
	attrs  []slog.Attr
}

// NewLineHandler creates a handler writing to w.
func NewLineHandler(w io.Writer, opts *HandlerOptions) *LineHandler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	h := &LineHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: opts.Level,
	}
	if h.level == nil {
		h.level = slog.LevelInfo
	}
	if opts.Color == ColorAuto || opts.Color == ColorAlways {
		h.colors = levelColors(opts.Color == ColorAlways)
	}
	return h
}

func levelColors(force bool) map[string]*color.Color {
	colors := map[string]*color.Color{
		"DEBUG":    color.New(color.FgMagenta),
		"INFO":     color.New(color.FgGreen),
		"WARNING":  color.New(color.FgYellow),
		"ERROR":    color.New(color.FgRed),
		"CRITICAL": color.New(color.FgRed, color.Bold),
	}
	if force {
		for _, c := range colors {
			c.EnableColor()
		}
	}
	return colors
}

// Name returns the logger name attached with the logger attribute.
func (h *LineHandler) Name() string {
	return h.name
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	label := LevelName(r.Level)
	if c, ok := h.colors[label]; ok {
		label = c.Sprint(label)
	}
	b.WriteString(label)
	b.WriteByte(':')
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == loggerKey && h.prefix == "" {
			clone.name = a.Value.String()
			continue
		}
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, group, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quoteValue(a.Value.String()))
}

func quoteValue(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

// NewLogger builds a bridge logger writing to w.
func NewLogger(w io.Writer, level slog.Leveler, mode ColorMode) *slog.Logger {
	return slog.New(NewLineHandler(w, &HandlerOptions{
		Level: level,
		Color: mode,
	})).With(loggerKey, LoggerName)
}

// InitLogging initializes the logger over the process's original stdout
func InitLogging(level slog.Level, mode ColorMode) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	Logger = NewLogger(os.Stdout, levelVar, mode)

	// Replace the default logger
	slog.SetDefault(Logger)
	return Logger
}
