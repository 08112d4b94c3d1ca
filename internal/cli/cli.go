// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/mediaflowgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("mediaflowgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
MediaFlowGo - a workflow execution engine for media generation graphs.

Usage:
  mediaflowgo [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow file (.hcl, or .json in the editor exchange format).

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file.")
	wFlag := flagSet.String("w", "", "Path to the workflow file (shorthand).")
	nodeFlag := flagSet.String("node", "", "Run only this node plus its stale upstream dependencies.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	maxConcurrentFlag := flagSet.Int("max-concurrent", 8, "Upper bound on concurrently executing local nodes within a level.")
	batchDelayFlag := flagSet.Duration("batch-delay", 0, "Delay between batch iterations. 0 uses the default of 2s.")
	circuitFlag := flagSet.Int("circuit-threshold", 0, "Consecutive iteration failures that halt a batch. 0 uses the default of 3.")
	notifyURLFlag := flagSet.String("notify-url", "", "socket.io endpoint for live progress events. Empty disables streaming.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var delay time.Duration
	switch {
	case *batchDelayFlag < 0:
		return nil, false, &ExitError{Code: 2, Message: "invalid batch-delay: cannot be negative"}
	default:
		delay = *batchDelayFlag
	}

	config, err := app.NewConfig(app.Config{
		GraphPath:        path,
		TargetNode:       *nodeFlag,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		MaxConcurrent:    *maxConcurrentFlag,
		BatchDelay:       delay,
		CircuitThreshold: *circuitFlag,
		NotifierURL:      *notifyURLFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "path", path)
	return config, false, nil
}
