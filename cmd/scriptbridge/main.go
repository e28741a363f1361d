package main

import (
	"os"

	"github.com/rocketship-ai/scriptbridge/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	executed, err := cmd.ExecuteC()
	if err != nil {
		cli.ReportError(executed, os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
