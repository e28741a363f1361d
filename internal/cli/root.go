package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rocketship-ai/scriptbridge/internal/script"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	"github.com/spf13/cobra"
)

const positionalCount = 5

// NewRootCmd creates a new root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptbridge <script_path> <method_name> <log_level> <input_json_path> <output_json_path>",
		Short: "Invoke a method of a script as a single-shot JSON call",
		Long: `scriptbridge loads a JavaScript file, calls one of its functions with the
arguments from a JSON array file and writes the return value to an output file
as {"type": "final_result", "data": <value>}.

Everything the function writes to stdout is logged as INFO and everything it
writes to stderr as ERROR, one "LEVEL:message" line per non-blank line on the
process's stdout. Async functions and functions returning a Promise are awaited.

The log level is one of DEBUG, INFO, WARNING, ERROR or CRITICAL.`,
		Args:          positionalArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInvoke,
	}

	cmd.Flags().SetInterspersed(false)
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file (default $"+EnvConfig+")")
	cmd.PersistentFlags().String("color", "", "Colour level labels: auto, always or never")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return runtime.WrapError(runtime.KindUsage, err, "invalid flags")
	})
	cmd.Version = GetVersion()

	cmd.AddCommand(
		NewValidateCmd(),
		NewVersionCmd(),
	)

	return cmd
}

func positionalArgs(cmd *cobra.Command, args []string) error {
	if len(args) < positionalCount {
		return runtime.NewError(runtime.KindUsage,
			"expected %d arguments (script_path method_name log_level input_json_path output_json_path), got %d",
			positionalCount, len(args))
	}
	return nil
}

func runInvoke(cmd *cobra.Command, args []string) error {
	scriptPath, method, levelName, inputPath, outputPath := args[0], args[1], args[2], args[3], args[4]

	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	level, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger := InitLogging(level, cfg.Color)
	logger.Debug("configuration loaded", "config", cfg.String())

	if err := cfg.ApplyEnvFile(); err != nil {
		return err
	}

	arguments, err := script.ReadArguments(inputPath)
	if err != nil {
		return err
	}

	req := script.Request{
		ScriptPath: scriptPath,
		Method:     method,
		Level:      level,
		Arguments:  arguments,
		OutputPath: outputPath,
	}

	bridge := script.New(logger, script.WithModulePaths(cfg.ModulePaths...))
	return bridge.Run(cmd.Context(), req)
}

func loadConfigFromFlags(cmd *cobra.Command) (*Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if mode, _ := cmd.Flags().GetString("color"); mode != "" {
		cfg.Color = ColorMode(strings.ToLower(mode))
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ExitCode maps an error returned by the root command to a process exit
// status: 0 for success, 2 for usage errors and 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, runtime.ErrUsage):
		return 2
	default:
		return 1
	}
}

// ReportError surfaces a failure of cmd. Usage errors go to stderr with the
// command's usage; everything else is logged at ERROR as "<Kind>: <message>",
// followed by the script trace at DEBUG when there is one.
func ReportError(cmd *cobra.Command, stderr io.Writer, err error) {
	if errors.Is(err, runtime.ErrUsage) {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return
	}

	logger := Logger
	if logger == nil {
		logger = InitLogging(slog.LevelInfo, ColorAuto)
	}

	var rerr *runtime.Error
	if !errors.As(err, &rerr) {
		err = runtime.WrapError(runtime.KindInvocation, err, "")
	}
	logger.Error(err.Error())

	for _, line := range strings.Split(runtime.TraceOf(err), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			logger.Debug(line)
		}
	}
}
