package executors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
)

// Executor defines the interface for all script language executors
type Executor interface {
	// Language returns the language identifier for this executor
	Language() string

	// ValidateScript performs static validation of the script
	ValidateScript(script string) error

	// Load runs the script's top-level code and returns its symbol table
	Load(path string) (Module, error)

	// Execute invokes fn with the arguments in rtCtx and stores the result on it
	Execute(ctx context.Context, fn Callable, rtCtx *runtime.Context) error
}

// Module is a loaded script.
type Module interface {
	// Name is the module identifier derived from the file name
	Name() string

	// Symbols lists the names exposed by the script, sorted
	Symbols() []string

	// Lookup resolves name to a callable
	Lookup(name string) (Callable, error)
}

// Callable is a function resolved from a module, classified once at lookup.
type Callable interface {
	Name() string
	Async() bool
}

// Options configure an executor.
type Options struct {
	Streams     *runtime.Streams // Ambient stdout/stderr targets for the script
	ModulePaths []string         // Extra folders searched by require
}

var extensions = map[string]string{
	".js":  "javascript",
	".cjs": "javascript",
}

// NewExecutor creates a new executor for the specified language
func NewExecutor(language string, opts Options) (Executor, error) {
	switch language {
	case "javascript":
		return NewJavaScriptExecutor(opts), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
}

// ForPath creates the executor matching the script's file extension.
func ForPath(path string, opts Options) (Executor, error) {
	language, err := LanguageForPath(path)
	if err != nil {
		return nil, err
	}
	return NewExecutor(language, opts)
}

// LanguageForPath maps a script path to a language by its extension.
func LanguageForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	language, ok := extensions[ext]
	if !ok {
		return "", runtime.NewError(runtime.KindLoad, "unsupported script type %q for %s", ext, path)
	}
	return language, nil
}

// GetSupportedLanguages returns a list of all supported languages
func GetSupportedLanguages() []string {
	return []string{"javascript"}
}

// ModuleName derives the module identifier from a script path.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
