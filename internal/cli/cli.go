// Package cli turns the command line into an app configuration, including
// the job selectors used to run a single slice of a compiled graph.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/healthmetrics/cascade/internal/app"
	"github.com/healthmetrics/cascade/internal/identity"
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

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("cascade", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cascade - compiles a hierarchy of modeling recipes into a job graph and runs it.

Usage:
  cascade [options] [SETTINGS_PATH]

Arguments:
  SETTINGS_PATH
    Path to a settings .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	settingsFlag := flagSet.String("settings", "", "Path to the settings file or directory.")
	sFlag := flagSet.String("s", "", "Path to the settings file or directory (shorthand).")
	baseDirFlag := flagSet.String("base-directory", ".", "Directory in which to find and store run artifacts.")
	mockRunFlag := flagSet.Bool("mock-run", false, "Materialize placeholder outputs instead of computing, to validate graph wiring.")
	runIDFlag := flagSet.String("run-id", "", "Attach to an existing run's artifacts instead of starting a new run.")
	printGraphFlag := flagSet.Bool("print-graph", false, "Print the compiled job graph without executing it.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	locationFlag := flagSet.Int("location-id", -1, "Select only jobs for this location.")
	recipeFlag := flagSet.String("recipe", "", "Select only jobs of this recipe.")
	sexFlag := flagSet.String("sex", "", "Select only jobs for this sex: male, female, or both.")
	nameFlag := flagSet.String("name", "", "Select only jobs with this name.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *settingsFlag != "" {
		path = *settingsFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
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

	cfg := app.Config{
		SettingsPath: path,
		BaseDir:      *baseDirFlag,
		MockRun:      *mockRunFlag,
		PrintGraph:   *printGraphFlag,
		Workers:      *workersFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	}

	if *runIDFlag != "" {
		runID, err := uuid.Parse(*runIDFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid run-id %q: %v", *runIDFlag, err)}
		}
		cfg.RunID = &runID
	}
	if *locationFlag >= 0 {
		loc := *locationFlag
		cfg.LocationID = &loc
	}
	if *recipeFlag != "" {
		recipe := *recipeFlag
		cfg.Recipe = &recipe
	}
	if *sexFlag != "" {
		sex, err := identity.ParseSex(*sexFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg.Sex = &sex
	}
	if *nameFlag != "" {
		name := *nameFlag
		cfg.Name = &name
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
