package main

import (
	"errors"
	"fmt"
	"os"

	"fileloader/internal/app"
	"fileloader/internal/logging"
)

// main is the entry point for the fileloader application. It initializes
// and runs the AppRunner.
func main() {
	runner := app.NewAppRunner()

	err := runner.Run(os.Args[1:])
	if err != nil {
		printUsage := errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrConfigNotFound)
		if printUsage {
			fmt.Fprintln(os.Stderr, "")
			runner.Usage(os.Stderr)
		}

		logging.L().Error("application execution failed: " + err.Error())
		os.Exit(1)
	}
}
