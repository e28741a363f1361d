package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rocketship-ai/scriptbridge/internal/script/executors"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
)

// Bridge loads a script, calls one method with its output captured as log
// records, and hands back the JSON result.
type Bridge struct {
	logger      *slog.Logger
	streams     *runtime.Streams
	modulePaths []string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithStreams sets the ambient stdout/stderr seen by the script outside of
// an invocation.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(b *Bridge) {
		b.streams = runtime.NewStreams(stdout, stderr)
	}
}

// WithModulePaths adds folders searched by require after the script's own
// directory.
func WithModulePaths(paths ...string) Option {
	return func(b *Bridge) {
		b.modulePaths = append(b.modulePaths, paths...)
	}
}

// New creates a bridge that logs through logger.
func New(logger *slog.Logger, opts ...Option) *Bridge {
	b := &Bridge{logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	if b.streams == nil {
		b.streams = runtime.NewStreams(os.Stdout, os.Stderr)
	}
	return b
}

// Load resolves the script at path without calling anything.
func (b *Bridge) Load(path string) (executors.Executor, executors.Module, error) {
	return b.load(b.logger, path)
}

func (b *Bridge) load(logger *slog.Logger, path string) (executors.Executor, executors.Module, error) {
	executor, err := executors.ForPath(path, executors.Options{
		Streams:     b.streams,
		ModulePaths: b.modulePaths,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(fmt.Sprintf("Importing module from %s ...", path))
	module, err := executor.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("module loaded", "module", module.Name(), "symbols", len(module.Symbols()))
	return executor, module, nil
}

// Invoke runs req.Method from req.ScriptPath with req.Arguments. Everything
// the method writes to stdout is logged at INFO and everything it writes to
// stderr at ERROR; both sinks are drained before Invoke returns.
func (b *Bridge) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Method == "" {
		return nil, runtime.NewError(runtime.KindUsage, "method name must not be empty")
	}

	logger := b.loggerFor(req.Level)

	executor, module, err := b.load(logger, req.ScriptPath)
	if err != nil {
		return nil, err
	}

	fn, err := module.Lookup(req.Method)
	if err != nil {
		return nil, err
	}

	logger.Debug("calling method",
		"method", fn.Name(),
		"async", fn.Async(),
		"args", FormatArguments(req.Arguments),
	)

	rtCtx := runtime.NewContext(req.Arguments)
	info := runtime.NewSink(logger, slog.LevelInfo)
	errSink := runtime.NewSink(logger, slog.LevelError)

	err = b.streams.Capture(info, errSink, func() error {
		return executor.Execute(ctx, fn, rtCtx)
	})
	if err != nil {
		return nil, err
	}
	if !rtCtx.Done() {
		return nil, runtime.NewError(runtime.KindInvocation, "%s returned no result", fn.Name())
	}
	return rtCtx.Result, nil
}

// Run invokes req and writes the envelope to req.OutputPath. Nothing is
// written when the invocation fails.
func (b *Bridge) Run(ctx context.Context, req Request) error {
	data, err := b.Invoke(ctx, req)
	if err != nil {
		return err
	}
	if err := WriteEnvelope(req.OutputPath, data); err != nil {
		return err
	}
	b.loggerFor(req.Level).Debug("result written", "path", req.OutputPath, "bytes", len(data))
	return nil
}

// loggerFor returns the bridge logger restricted to records at or above level.
func (b *Bridge) loggerFor(level slog.Level) *slog.Logger {
	return slog.New(&levelHandler{level: level, handler: b.logger.Handler()})
}

// levelHandler drops records below level before they reach handler.
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.handler.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}
