package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "dev"

// GetVersion returns the version reported by the CLI. SCRIPTBRIDGE_VERSION
// takes precedence over the build-time value.
func GetVersion() string {
	if v := os.Getenv("SCRIPTBRIDGE_VERSION"); v != "" {
		return v
	}
	return Version
}

// NewVersionCmd creates a new version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of scriptbridge",
		Long:  `Print the version number of the scriptbridge invocation bridge.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scriptbridge %s\n", GetVersion())
		},
	}
}
