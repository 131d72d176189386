package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// OutputFormatter renders Events as colorized human-readable lines.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter writing to w (stdout when
// nil), auto-detecting color support.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	return &OutputFormatter{useColor: useColor, writer: w}
}

// Format renders one event.
func (f *OutputFormatter) Format(event Event) string {
	switch event.Name {
	case BlockBegin:
		return fmt.Sprintf("%s block %v starting", f.colorize("===", color.FgYellow), event.Data["start"])
	case BlockComplete:
		return fmt.Sprintf("%s %s block %v done in %s",
			f.colorize("===", color.FgGreen), f.statusGlyph(event.Data["status"]), event.Data["start"], event.Latency)
	case SolverInvoked:
		return fmt.Sprintf("%s solving %v variables, %v rows", f.colorize("->", color.FgCyan), event.Data["vars"], event.Data["rows"])
	case SolverComplete:
		return fmt.Sprintf("%s solver returned %v (objective %.4f)", f.colorize("<-", color.FgCyan), event.Data["status"], event.Data["objective"])
	case CostPriceRound:
		return fmt.Sprintf("  cost-price round %v: max delta %.6g", event.Data["iteration"], event.Data["delta"])
	case CostPriceDone:
		return fmt.Sprintf("%s cost-price converged after %v rounds", f.colorize("===", color.FgGreen), event.Data["iterations"])
	case ExperimentRun:
		return fmt.Sprintf("%s run %v: %v", f.colorize("***", color.FgMagenta), event.Data["index"], event.Data["combination"])
	case ExperimentDone:
		return fmt.Sprintf("%s experiment complete: %v runs", f.colorize("===", color.FgGreen), event.Data["count"])
	case ErrorDiagnostic:
		return fmt.Sprintf("%s %v", f.colorize("!!!", color.FgRed), event.Data["message"])
	default:
		return event.Name
	}
}

func (f *OutputFormatter) statusGlyph(status interface{}) string {
	if fmt.Sprint(status) == "StatusOptimal" {
		return f.colorize("✓", color.FgGreen)
	}
	return f.colorize("✗", color.FgRed)
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a Handler that prints formatted events to
// stdout.
func ConsoleHandler() Handler {
	f := NewOutputFormatter(os.Stdout)
	return func(event Event) {
		fmt.Fprintln(f.writer, f.Format(event))
	}
}

func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
