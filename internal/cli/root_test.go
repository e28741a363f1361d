package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerScript = `
function add(a, b) {
  console.log("adding", a, b);
  return a + b;
}

async function greet(name) {
  await new Promise(resolve => setTimeout(resolve, 1));
  return { greeting: "hello " + name };
}

function fail() {
  console.log("partial");
  throw new Error("boom");
}
`

type invocation struct {
	dir    string
	script string
	input  string
	output string
}

func newInvocation(t *testing.T, input string) invocation {
	t.Helper()
	clearConfigEnv(t)

	dir := t.TempDir()
	inv := invocation{
		dir:    dir,
		script: filepath.Join(dir, "provider.js"),
		input:  filepath.Join(dir, "input.json"),
		output: filepath.Join(dir, "output.json"),
	}
	require.NoError(t, os.WriteFile(inv.script, []byte(providerScript), 0644))
	require.NoError(t, os.WriteFile(inv.input, []byte(input), 0644))
	return inv
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	require.NotNil(t, cmd)

	assert.Contains(t, cmd.Use, "scriptbridge")
	assert.NotEmpty(t, cmd.Version)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("color"))

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "version")
}

func TestRootCmd_Invoke(t *testing.T) {
	tests := []struct {
		name   string
		method string
		level  string
		input  string
		want   string
	}{
		{name: "sync", method: "add", level: "INFO", input: `[2, 3]`, want: `{"type":"final_result","data":5}`},
		{name: "async", method: "greet", level: "debug", input: `["bridge"]`, want: `{"type":"final_result","data":{"greeting":"hello bridge"}}`},
		{name: "extra arguments ignored", method: "add", level: "ERROR", input: `[1, 1, 9]`, want: `{"type":"final_result","data":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvocation(t, tt.input)

			err := execute(t, "--color", "never", inv.script, tt.method, tt.level, inv.input, inv.output)
			require.NoError(t, err)
			assert.Equal(t, 0, ExitCode(err))

			data, err := os.ReadFile(inv.output)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestRootCmd_Failures(t *testing.T) {
	tests := []struct {
		name   string
		method string
		level  string
		input  string
		kind   error
	}{
		{name: "missing method", method: "nope", level: "INFO", input: `[]`, kind: runtime.ErrNotFound},
		{name: "script throws", method: "fail", level: "INFO", input: `[]`, kind: runtime.ErrInvocation},
		{name: "object input", method: "add", level: "INFO", input: `{"a": 1}`, kind: runtime.ErrMalformedInput},
		{name: "invalid json", method: "add", level: "INFO", input: `[1,`, kind: runtime.ErrMalformedInput},
		{name: "unknown level", method: "add", level: "VERBOSE", input: `[1, 2]`, kind: runtime.ErrUnknownLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvocation(t, tt.input)

			err := execute(t, "--color", "never", inv.script, tt.method, tt.level, inv.input, inv.output)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, 1, ExitCode(err))

			_, statErr := os.Stat(inv.output)
			assert.True(t, os.IsNotExist(statErr), "no output file is written on failure")
		})
	}
}

func TestRootCmd_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: []string{}},
		{name: "too few arguments", args: []string{"provider.js", "add", "INFO", "in.json"}},
		{name: "unknown flag", args: []string{"--bogus", "a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)

			err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, runtime.ErrUsage)
			assert.Equal(t, 2, ExitCode(err))
		})
	}
}

func TestRootCmd_InvalidColorFlag(t *testing.T) {
	inv := newInvocation(t, `[1, 2]`)

	err := execute(t, "--color", "rainbow", inv.script, "add", "INFO", inv.input, inv.output)
	assert.ErrorIs(t, err, runtime.ErrConfig)
	assert.Equal(t, 1, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(runtime.NewError(runtime.KindUsage, "bad")))
	assert.Equal(t, 1, ExitCode(runtime.NewError(runtime.KindLoad, "bad")))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
}

func TestReportError(t *testing.T) {
	t.Run("usage error goes to stderr", func(t *testing.T) {
		var stderr bytes.Buffer
		cmd := NewRootCmd()

		ReportError(cmd, &stderr, runtime.NewError(runtime.KindUsage, "expected 5 arguments"))

		assert.Contains(t, stderr.String(), "Error: UsageError: expected 5 arguments")
		assert.Contains(t, stderr.String(), "Usage:")
	})

	t.Run("runtime error is logged", func(t *testing.T) {
		var out bytes.Buffer
		prev := Logger
		Logger = NewLogger(&out, slog.LevelDebug, ColorNever)
		defer func() { Logger = prev }()

		err := &runtime.Error{
			Kind:    runtime.KindInvocation,
			Message: "boom",
			Trace:   "Error: boom\n    at fail (provider.js:3:9)\n",
		}
		var stderr bytes.Buffer
		ReportError(NewRootCmd(), &stderr, err)

		assert.Empty(t, stderr.String())
		assert.Equal(t, "ERROR:InvocationError: boom\n"+
			"DEBUG:Error: boom\n"+
			"DEBUG:at fail (provider.js:3:9)\n", out.String())
	})

	t.Run("plain error is wrapped", func(t *testing.T) {
		var out bytes.Buffer
		prev := Logger
		Logger = NewLogger(&out, slog.LevelDebug, ColorNever)
		defer func() { Logger = prev }()

		ReportError(NewRootCmd(), &bytes.Buffer{}, errors.New("disk on fire"))
		assert.Equal(t, "ERROR:InvocationError: disk on fire\n", out.String())
	})
}
