package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rocketship-ai/scriptbridge/internal/script"
	"github.com/rocketship-ai/scriptbridge/internal/script/executors"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates a new validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script_path>...",
		Short: "Check that scripts load and list their callables",
		Long: `Compile and load one or more scripts and list the names they expose,
marking each callable as sync or async. Loading runs the script's top-level
code, exactly as an invocation would, but no method is called.

Examples:
  scriptbridge validate provider.js            # Validate a single script
  scriptbridge validate a.js b.js              # Validate multiple scripts`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runtime.NewError(runtime.KindUsage, "please specify at least one script to validate")
			}
			return nil
		},
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	logger := InitLogging(slog.LevelInfo, cfg.Color)
	if err := cfg.ApplyEnvFile(); err != nil {
		return err
	}

	totalValid := 0
	totalInvalid := 0
	out := cmd.OutOrStdout()

	for _, path := range args {
		if err := validateScript(cmd, path, cfg); err != nil {
			logger.Error("validation failed", "file", path, "error", err)
			totalInvalid++
			continue
		}
		totalValid++
	}

	logger.Info("validation complete", "valid", totalValid, "invalid", totalInvalid, "total", len(args))

	if totalInvalid > 0 {
		return runtime.NewError(runtime.KindLoad, "validation failed for %d script(s)", totalInvalid)
	}

	fmt.Fprintf(out, "All %d script(s) passed validation\n", totalValid)
	return nil
}

func validateScript(cmd *cobra.Command, path string, cfg *Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return runtime.WrapError(runtime.KindLoad, err, "failed to read script file %s", path)
	}

	validator, err := executors.ForPath(path, executors.Options{})
	if err != nil {
		return err
	}
	if err := validator.ValidateScript(string(src)); err != nil {
		return runtime.WrapError(runtime.KindLoad, err, "%s", path)
	}

	bridge := script.New(Logger, script.WithModulePaths(cfg.ModulePaths...))
	executor, module, err := bridge.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, module %s)\n", path, executor.Language(), module.Name())
	for _, name := range module.Symbols() {
		fmt.Fprintf(out, "  %-24s %s\n", name, describeSymbol(module, name))
	}
	return nil
}

func describeSymbol(module executors.Module, name string) string {
	fn, err := module.Lookup(name)
	if err != nil {
		return "value"
	}
	if fn.Async() {
		return "async"
	}
	return "sync"
}
