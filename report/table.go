// Package report formats run results as tables for console display
// using tablewriter with a markdown renderer.
package report

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

// Formatter renders entity time series as tables.
type Formatter struct {
	// MaxRows caps how many timesteps are printed before the table is
	// truncated with a row-count footer, keeping long runs readable.
	MaxRows int
}

// NewFormatter creates a Formatter with a sensible default row cap.
func NewFormatter() *Formatter {
	return &Formatter{MaxRows: 200}
}

// FormatVector renders one entity attribute's values over
// [start, end) as a two-column table: timestep and formatted value.
func (f *Formatter) FormatVector(name string, values []expr.Value, start, end int) string {
	var b strings.Builder
	alignment := []tw.Align{tw.AlignRight, tw.AlignRight}

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"t", name})

	rows := 0
	for t := start; t < end && t < len(values); t++ {
		table.Append([]string{fmt.Sprintf("%d", t), values[t].String()})
		rows++
		if rows >= f.MaxRows {
			break
		}
	}
	table.Render()
	if end-start > rows {
		fmt.Fprintf(&b, "\n_%d of %d rows shown_\n", rows, end-start)
	}
	return b.String()
}

// FormatExperiment renders an experiment's run results as a table of
// combination -> objective/feasibility.
func (f *Formatter) FormatExperiment(e *model.Experiment) string {
	var b strings.Builder
	alignment := make([]tw.Align, len(e.Dimensions)+2)
	for i := range alignment {
		alignment[i] = tw.AlignLeft
	}

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, 0, len(e.Dimensions)+2)
	for _, d := range e.Dimensions {
		headers = append(headers, d.Name)
	}
	headers = append(headers, "feasible", "objective")
	table.Header(headers)

	for _, run := range e.Runs {
		row := append([]string{}, run.Combination...)
		row = append(row, fmt.Sprintf("%t", run.Feasible), fmt.Sprintf("%.4f", run.Objective))
		table.Append(row)
	}
	table.Render()
	return b.String()
}
