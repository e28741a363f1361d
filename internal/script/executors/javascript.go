package executors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/process"
	"github.com/dop251/goja_nodejs/require"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

const asyncProbeSource = `(function (f) {
	return typeof f === "function" &&
		Object.getPrototypeOf(f) === Object.getPrototypeOf(async function () {});
})`

// JavaScriptExecutor loads and calls JavaScript using the goja engine.
// The engine is owned by an event loop; every access happens on the
// goroutine that calls Load and Execute.
type JavaScriptExecutor struct {
	streams     *runtime.Streams
	modulePaths []string

	loop *eventloop.EventLoop
	vm   *goja.Runtime

	asyncProbe goja.Callable
	parse      goja.Callable
	stringify  goja.Callable
}

// NewJavaScriptExecutor creates a new JavaScript executor
func NewJavaScriptExecutor(opts Options) *JavaScriptExecutor {
	streams := opts.Streams
	if streams == nil {
		streams = runtime.NewStreams(os.Stdout, os.Stderr)
	}
	return &JavaScriptExecutor{
		streams:     streams,
		modulePaths: opts.ModulePaths,
	}
}

// Language returns the language identifier
func (e *JavaScriptExecutor) Language() string {
	return "javascript"
}

// ValidateScript performs static validation of JavaScript code
func (e *JavaScriptExecutor) ValidateScript(script string) error {
	_, err := goja.Compile("validation", script, false)
	if err != nil {
		return fmt.Errorf("javascript syntax error: %w", err)
	}
	return nil
}

// Load reads, compiles and runs the script at path and builds its symbol
// table from module.exports and the globals its top-level code defined.
func (e *JavaScriptExecutor) Load(path string) (Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, runtime.WrapError(runtime.KindLoad, err, "failed to resolve script path %s", path)
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, runtime.WrapError(runtime.KindLoad, err, "failed to read script file %s", path)
	}

	parsed, err := goja.Parse(abs, string(src))
	if err != nil {
		return nil, runtime.WrapError(runtime.KindLoad, err, "javascript syntax error in %s", path)
	}
	prg, err := goja.CompileAST(parsed, false)
	if err != nil {
		return nil, runtime.WrapError(runtime.KindLoad, err, "javascript syntax error in %s", path)
	}

	e.ensureEngine(filepath.Dir(abs))

	var (
		mod     *jsModule
		loadErr error
	)
	e.loop.Run(func(vm *goja.Runtime) {
		mod, loadErr = e.runModule(vm, abs, prg)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	mod.lexicals = lexicalNames(parsed)
	return mod, nil
}

// Execute calls fn with the arguments in rtCtx. Asynchronous callables, and
// synchronous ones that hand back a promise, are driven to completion on the
// event loop before the result is serialized.
func (e *JavaScriptExecutor) Execute(ctx context.Context, fn Callable, rtCtx *runtime.Context) error {
	c, ok := fn.(*jsCallable)
	if !ok || c.exec != e {
		return runtime.NewError(runtime.KindInvocation, "callable %s was not resolved by this executor", fn.Name())
	}

	args, err := e.convertArgs(rtCtx.Args)
	if err != nil {
		return err
	}

	var result goja.Value
	if c.async {
		e.loop.Run(func(*goja.Runtime) {
			result, err = e.call(c, args)
		})
	} else {
		result, err = e.call(c, args)
		// Timers scheduled by the call still run while output is captured.
		e.loop.Run(func(*goja.Runtime) {})
	}
	if err != nil {
		return err
	}

	result, err = e.settle(c.name, result)
	if err != nil {
		return err
	}

	data, err := e.serialize(c.name, result)
	if err != nil {
		return err
	}
	rtCtx.SetResult(data)
	return nil
}

// ensureEngine creates the event loop, its runtime and the module registry.
// The script's directory is the first require folder so sibling files can be
// required by bare name.
func (e *JavaScriptExecutor) ensureEngine(scriptDir string) {
	if e.loop != nil {
		return
	}

	folders := append([]string{scriptDir}, e.modulePaths...)
	registry := require.NewRegistry(require.WithGlobalFolders(folders...))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&consolePrinter{streams: e.streams}))

	e.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(false),
	)
}

// runModule executes the compiled script on vm. It runs inside the loop.
func (e *JavaScriptExecutor) runModule(vm *goja.Runtime, path string, prg *goja.Program) (mod *jsModule, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = runtime.NewError(runtime.KindLoad, "javascript panic while loading %s: %v", path, r)
		}
	}()

	if e.vm == nil {
		e.vm = vm
		if err := e.setupBuiltins(vm); err != nil {
			return nil, runtime.WrapError(runtime.KindLoad, err, "failed to setup built-ins")
		}
	}

	moduleObj, err := e.setupModule(vm)
	if err != nil {
		return nil, runtime.WrapError(runtime.KindLoad, err, "failed to setup module scope")
	}

	baseline := make(map[string]struct{})
	for _, key := range vm.GlobalObject().Keys() {
		baseline[key] = struct{}{}
	}

	if _, err := vm.RunProgram(prg); err != nil {
		return nil, scriptError(runtime.KindLoad, fmt.Sprintf("error while loading %s", path), err)
	}

	mod = &jsModule{
		exec:    e,
		name:    ModuleName(path),
		path:    path,
		symbols: make(map[string]symbol),
	}

	for _, key := range vm.GlobalObject().Keys() {
		if _, seen := baseline[key]; seen {
			continue
		}
		mod.symbols[key] = symbol{value: vm.Get(key)}
	}

	// Exports shadow globals of the same name.
	if exported := moduleObj.Get("exports"); exported != nil && !goja.IsUndefined(exported) && !goja.IsNull(exported) {
		obj := exported.ToObject(vm)
		for _, key := range obj.Keys() {
			mod.symbols[key] = symbol{value: obj.Get(key), this: obj}
		}
	}

	return mod, nil
}

// setupBuiltins injects console, process and the helpers the executor
// itself calls into the JavaScript runtime
func (e *JavaScriptExecutor) setupBuiltins(vm *goja.Runtime) error {
	if err := vm.Set("console", require.Require(vm, console.ModuleName)); err != nil {
		return err
	}

	process.Enable(vm)
	proc := vm.Get("process").ToObject(vm)
	if err := proc.Set("stdout", e.newStream(vm, e.streams.Stdout())); err != nil {
		return err
	}
	if err := proc.Set("stderr", e.newStream(vm, e.streams.Stderr())); err != nil {
		return err
	}

	probe, err := vm.RunString(asyncProbeSource)
	if err != nil {
		return err
	}
	var ok bool
	if e.asyncProbe, ok = goja.AssertFunction(probe); !ok {
		return fmt.Errorf("async probe is not a function")
	}

	jsonObj := vm.Get("JSON").ToObject(vm)
	if e.parse, ok = goja.AssertFunction(jsonObj.Get("parse")); !ok {
		return fmt.Errorf("JSON.parse is not a function")
	}
	if e.stringify, ok = goja.AssertFunction(jsonObj.Get("stringify")); !ok {
		return fmt.Errorf("JSON.stringify is not a function")
	}
	return nil
}

// setupModule gives the script a CommonJS surface and returns the module object.
func (e *JavaScriptExecutor) setupModule(vm *goja.Runtime) (*goja.Object, error) {
	moduleObj := vm.NewObject()
	exports := vm.NewObject()
	if err := moduleObj.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", moduleObj); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}
	return moduleObj, nil
}

// newStream builds a minimal writable stream object backed by w
func (e *JavaScriptExecutor) newStream(vm *goja.Runtime, w io.Writer) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("write", func(call goja.FunctionCall) goja.Value {
		chunk := call.Argument(0)
		if !goja.IsUndefined(chunk) && !goja.IsNull(chunk) {
			_, _ = io.WriteString(w, chunk.String())
		}
		return vm.ToValue(true)
	})
	return obj
}

// convertArgs materializes the JSON arguments as native JavaScript values
func (e *JavaScriptExecutor) convertArgs(raw []json.RawMessage) ([]goja.Value, error) {
	args := make([]goja.Value, 0, len(raw))
	for i, r := range raw {
		v, err := e.parse(goja.Undefined(), e.vm.ToValue(string(r)))
		if err != nil {
			return nil, scriptError(runtime.KindMalformedInput, fmt.Sprintf("argument %d is not valid JSON", i), err)
		}
		args = append(args, v)
	}
	return args, nil
}

func (e *JavaScriptExecutor) call(c *jsCallable, args []goja.Value) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = runtime.NewError(runtime.KindInvocation, "javascript panic in %s: %v", c.name, r)
		}
	}()

	this := c.this
	if this == nil {
		this = goja.Undefined()
	}
	v, err = c.fn(this, args...)
	if err != nil {
		return nil, scriptError(runtime.KindInvocation, c.name, err)
	}
	return v, nil
}

// settle unwraps a promise, running the event loop if it is still pending.
func (e *JavaScriptExecutor) settle(name string, v goja.Value) (goja.Value, error) {
	if v == nil {
		return goja.Undefined(), nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}

	if p.State() == goja.PromiseStatePending {
		e.loop.Run(func(*goja.Runtime) {})
	}

	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, e.rejection(name, p.Result())
	default:
		return nil, runtime.NewError(runtime.KindInvocation, "%s: promise never settled", name)
	}
}

func (e *JavaScriptExecutor) rejection(name string, reason goja.Value) error {
	rerr := runtime.NewError(runtime.KindInvocation, "%s: %s", name, valueString(reason))
	if obj, ok := reason.(*goja.Object); ok {
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			rerr.Trace = stack.String()
		}
	}
	return rerr
}

// serialize encodes v with JSON.stringify. undefined becomes null.
func (e *JavaScriptExecutor) serialize(name string, v goja.Value) (json.RawMessage, error) {
	if v == nil || goja.IsUndefined(v) {
		return json.RawMessage("null"), nil
	}

	out, err := e.stringify(goja.Undefined(), v)
	if err != nil {
		return nil, scriptError(runtime.KindSerialization, fmt.Sprintf("return value of %s is not JSON serializable", name), err)
	}
	if out == nil || goja.IsUndefined(out) {
		return nil, runtime.NewError(runtime.KindSerialization, "return value of %s is not JSON serializable", name)
	}
	return json.RawMessage(out.String()), nil
}

func (e *JavaScriptExecutor) isAsync(v goja.Value) bool {
	r, err := e.asyncProbe(goja.Undefined(), v)
	if err != nil {
		return false
	}
	return r.ToBoolean()
}

// jsModule is a loaded script and its symbol table
type jsModule struct {
	exec     *JavaScriptExecutor
	name     string
	path     string
	symbols  map[string]symbol
	lexicals map[string]struct{} // top-level const/let/class names declared by the script
}

// symbol is a named value of a module. Values taken from module.exports keep
// the exports object as their receiver.
type symbol struct {
	value goja.Value
	this  goja.Value
}

func (m *jsModule) Name() string {
	return m.name
}

func (m *jsModule) Symbols() []string {
	names := make([]string, 0, len(m.symbols))
	for name := range m.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves name from the symbol table, falling back to top-level
// const/let/class bindings, which are not properties of the global object.
func (m *jsModule) Lookup(name string) (Callable, error) {
	sym, ok := m.symbols[name]
	if !ok {
		sym.value, ok = m.lexical(name)
	}
	if !ok {
		return nil, runtime.NewError(runtime.KindNotFound, "method %q not found in module %s", name, m.name)
	}

	fn, ok := goja.AssertFunction(sym.value)
	if !ok {
		return nil, runtime.NewError(runtime.KindNotCallable, "%q in module %s is not callable", name, m.name)
	}

	return &jsCallable{
		exec:  m.exec,
		name:  name,
		fn:    fn,
		this:  sym.this,
		async: m.exec.isAsync(sym.value),
	}, nil
}

// lexical reads a top-level binding the script itself declared. Builtins and
// globals injected by the executor are never returned.
func (m *jsModule) lexical(name string) (goja.Value, bool) {
	if _, declared := m.lexicals[name]; !declared || !identifierPattern.MatchString(name) {
		return nil, false
	}
	v, err := m.exec.vm.RunString(fmt.Sprintf("typeof %[1]s === \"undefined\" ? undefined : %[1]s", name))
	if err != nil || v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return v, true
}

type jsCallable struct {
	exec  *JavaScriptExecutor
	name  string
	fn    goja.Callable
	this  goja.Value
	async bool
}

func (c *jsCallable) Name() string {
	return c.name
}

func (c *jsCallable) Async() bool {
	return c.async
}

// lexicalNames collects the names bound by top-level let, const and class
// declarations of prg.
func lexicalNames(prg *ast.Program) map[string]struct{} {
	names := make(map[string]struct{})
	for _, stmt := range prg.Body {
		switch decl := stmt.(type) {
		case *ast.LexicalDeclaration:
			for _, b := range decl.List {
				if id, ok := b.Target.(*ast.Identifier); ok {
					names[string(id.Name)] = struct{}{}
				}
			}
		case *ast.ClassDeclaration:
			if decl.Class != nil && decl.Class.Name != nil {
				names[string(decl.Class.Name.Name)] = struct{}{}
			}
		}
	}
	return names
}

// consolePrinter routes console output to the current stream targets.
type consolePrinter struct {
	streams *runtime.Streams
}

func (p *consolePrinter) Log(s string) {
	_, _ = io.WriteString(p.streams.Stdout(), s+"\n")
}

func (p *consolePrinter) Warn(s string) {
	_, _ = io.WriteString(p.streams.Stderr(), s+"\n")
}

func (p *consolePrinter) Error(s string) {
	_, _ = io.WriteString(p.streams.Stderr(), s+"\n")
}

// scriptError converts an engine error into a kinded error, keeping the
// JavaScript stack as the trace.
func scriptError(kind runtime.Kind, what string, err error) *runtime.Error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &runtime.Error{
			Kind:    kind,
			Message: fmt.Sprintf("%s: %s", what, valueString(exc.Value())),
			Trace:   exc.String(),
			Err:     err,
		}
	}
	return runtime.WrapError(kind, err, "%s", what)
}

func valueString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
