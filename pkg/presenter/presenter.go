// Package presenter provides consistent CLI output for user-facing messages:
// success, error, warning, and informational output with color support and a
// quiet mode for scripting.
package presenter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// ColorMode represents different color output modes.
type ColorMode int

const (
	// ColorAuto detects whether to use colored output from the terminal.
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output.
	ColorAlways
	// ColorNever disables colored output.
	ColorNever
)

// TerminalPresenter writes user-facing messages to a terminal.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	quiet       bool
}

// New creates a TerminalPresenter with default settings.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom writers and color mode.
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("SKILLET_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	}
	return ColorAuto
}

// SetQuiet toggles quiet mode; errors are still printed.
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet reports whether quiet mode is enabled.
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

// Error prints an error with optional context to the error output.
// Errors are never suppressed by quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if context != "" {
		fmt.Fprintf(p.errorOutput, "%s %s: %v\n", color.RedString("Error:"), context, err)
		return
	}
	fmt.Fprintf(p.errorOutput, "%s %v\n", color.RedString("Error:"), err)
}

// Success prints a success message.
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s %s\n", color.GreenString("✓"), message)
}

// Warning prints a warning message.
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s %s\n", color.YellowString("⚠"), message)
}

// Info prints an informational message.
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section prints a section header.
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "\n%s\n", color.New(color.Bold).Sprint(title))
}

var defaultPresenter = New()

// Error prints an error using the default presenter.
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success prints a success message using the default presenter.
func Success(message string) { defaultPresenter.Success(message) }

// Warning prints a warning message using the default presenter.
func Warning(message string) { defaultPresenter.Warning(message) }

// Info prints an informational message using the default presenter.
func Info(message string) { defaultPresenter.Info(message) }

// Section prints a section header using the default presenter.
func Section(title string) { defaultPresenter.Section(title) }

// SetQuiet toggles quiet mode on the default presenter.
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }
