package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rhplan/motionplan"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := NewApp(&out).Run(append([]string{"rhplan"}, args...))
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"$defs"`)
	test.That(t, out, test.ShouldContainSubstring, `"goal"`)
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "short.json")
	test.That(t, os.WriteFile(cfgFile, []byte(`{"start": {"x": 0, "y": 0}, "goal": {"x": 0.25, "y": 0}}`), 0o600), test.ShouldBeNil)
	plotFile := filepath.Join(dir, "short.svg")

	out, err := runApp(t, "plan", "--config", cfgFile, "--out", plotFile, "--paths")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "short.json")
	test.That(t, out, test.ShouldContainSubstring, "converged")
	test.That(t, out, test.ShouldContainSubstring, `"path"`)
	_, err = os.Stat(plotFile)
	test.That(t, err, test.ShouldBeNil)

	_, err = runApp(t, "plan", "--config", cfgFile, "--backend", "magic")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "plan", "--config", filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "plan")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExampleCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, "example", "--max-steps", "3", "--out-dir", dir, "single-circle")
	test.That(t, errors.Is(err, motionplan.ErrMaxStepsExceeded), test.ShouldBeTrue)
	test.That(t, out, test.ShouldContainSubstring, "single-circle")
	test.That(t, out, test.ShouldContainSubstring, "max steps exceeded")
	_, err = os.Stat(filepath.Join(dir, "single-circle.svg"))
	test.That(t, err, test.ShouldBeNil)

	_, err = runApp(t, "--debug", "example", "--max-steps", "1", "--trace-obstacles", "single-circle")
	test.That(t, errors.Is(err, motionplan.ErrMaxStepsExceeded), test.ShouldBeTrue)

	logFile := filepath.Join(dir, "logs", "rhplan.log")
	out, err = runApp(t, "--log-file", logFile, "example", "--max-steps", "2", "--out-dir", dir, "--histogram", "4", "single-circle")
	test.That(t, errors.Is(err, motionplan.ErrMaxStepsExceeded), test.ShouldBeTrue)
	test.That(t, out, test.ShouldContainSubstring, "step lengths of single-circle")
	logs, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "saved plot")

	tracedFile := filepath.Join(dir, "traced.log")
	_, err = runApp(t, "--log-file", tracedFile, "example", "--max-steps", "1", "--trace", "single-circle")
	test.That(t, errors.Is(err, motionplan.ErrMaxStepsExceeded), test.ShouldBeTrue)
	logs, err = os.ReadFile(tracedFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "step solved")
	test.That(t, string(logs), test.ShouldContainSubstring, `"trace":"single-circle"`)

	_, err = runApp(t, "example", "missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSummaryTable(t *testing.T) {
	table := SummaryTable([]*motionplan.ScenarioResult{
		{Name: "ok", Plan: &motionplan.Plan{Path: []r2.Point{{}, {X: 3, Y: 4}}, Outcome: motionplan.Converged}},
		{Name: "broken", Err: errors.New("bad options")},
	})
	test.That(t, table, test.ShouldContainSubstring, "ok")
	test.That(t, table, test.ShouldContainSubstring, "converged")
	test.That(t, table, test.ShouldContainSubstring, "5.000")
	test.That(t, table, test.ShouldContainSubstring, "bad options")
}

func TestStepHistogram(t *testing.T) {
	var out bytes.Buffer
	err := StepHistogram(&out, []*motionplan.ScenarioResult{
		{Name: "walk", Plan: &motionplan.Plan{Path: []r2.Point{{}, {X: 1}, {X: 3}, {X: 4}}}},
		{Name: "still", Plan: &motionplan.Plan{Path: []r2.Point{{}}}},
		{Name: "broken", Err: errors.New("bad options")},
	}, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "step lengths of walk")
	test.That(t, out.String(), test.ShouldNotContainSubstring, "still")
	test.That(t, out.String(), test.ShouldNotContainSubstring, "broken")
	test.That(t, out.String(), test.ShouldContainSubstring, "66.7%")
}
