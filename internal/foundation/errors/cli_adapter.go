package errors

import (
	"fmt"
	"io"
	"log/slog"
)

// CLIErrorAdapter maps errors to exit codes and user-facing messages for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	c, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch c.Category() {
	case CategoryValidation, CategoryTooLarge:
		return 2
	case CategoryAuth:
		return 5
	case CategoryConfig:
		return 7
	case CategoryNetwork, CategoryForge, CategoryLLM:
		return 8
	case CategoryGeneration, CategoryRepository, CategoryPublish, CategoryNotification:
		return 9
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for display. Non-verbose output shows only the
// outermost message; verbose output shows the full chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := AsClassified(err); ok && !a.verbose {
		return fmt.Sprintf("Error: %s (use -v for details)", c.Message())
	}
	return fmt.Sprintf("Error: %v", err)
}

// Report logs the error and prints the user-facing message to out, returning the exit code.
func (a *CLIErrorAdapter) Report(out io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if c, ok := AsClassified(err); ok {
		a.logger.Error(c.Message(), slog.String("category", string(c.Category())), slog.Any("error", err))
	} else {
		a.logger.Error("unclassified error", slog.Any("error", err))
	}
	_, _ = fmt.Fprintln(out, a.FormatError(err))
	return a.ExitCodeFor(err)
}
