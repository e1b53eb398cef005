package cli

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/rhplan/motionplan"
)

// SummaryTable renders one row per scenario with its outcome and path statistics.
func SummaryTable(results []*motionplan.ScenarioResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Scenario", "Outcome", "Steps", "Length", "Max step", "Outer iterations", "End", "Error"})
	for _, result := range results {
		errString := ""
		if result.Err != nil {
			errString = result.Err.Error()
		}
		if result.Plan == nil {
			t.AppendRow(table.Row{result.Name, "", "", "", "", "", "", errString})
			continue
		}
		stats, err := result.Plan.Stats()
		if err != nil {
			t.AppendRow(table.Row{result.Name, outcomeString(result.Plan.Outcome), "", "", "", "", "", err.Error()})
			continue
		}
		end := result.Plan.End()
		t.AppendRow(table.Row{
			result.Name,
			outcomeString(result.Plan.Outcome),
			stats.Steps,
			fmt.Sprintf("%.3f", stats.Length),
			fmt.Sprintf("%.4f", stats.MaxStepLength),
			stats.OuterIterations,
			fmt.Sprintf("X:%.4f, Y:%.4f", end.X, end.Y),
			errString,
		})
	}
	return t.Render()
}

// outcomeString colors converged outcomes green and every other outcome red. Colors are dropped
// when the output is not a terminal.
func outcomeString(outcome motionplan.Outcome) string {
	if outcome == motionplan.Converged {
		return color.GreenString(outcome.String())
	}
	return color.RedString(outcome.String())
}

// histogramWidth is the width of the longest histogram bar.
const histogramWidth = 40

// StepHistogram prints a histogram of the step lengths of every plan with at least one step.
func StepHistogram(w io.Writer, results []*motionplan.ScenarioResult, bins int) error {
	for _, result := range results {
		if result.Plan == nil {
			continue
		}
		lengths := result.Plan.StepLengths()
		if len(lengths) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "step lengths of %s\n", result.Name); err != nil {
			return err
		}
		if err := histogram.Fprint(w, histogram.Hist(bins, lengths), histogram.Linear(histogramWidth)); err != nil {
			return err
		}
	}
	return nil
}
