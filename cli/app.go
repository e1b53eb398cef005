// Package cli contains the rhplan command line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/rhplan/config"
	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan"
	"go.viam.com/rhplan/spatialmath"
	"go.viam.com/rhplan/visualize"
)

const (
	// Flags.
	flagDebug    = "debug"
	flagConfig   = "config"
	flagOut      = "out"
	flagOutDir   = "out-dir"
	flagMaxSteps = "max-steps"
	flagBackend  = "backend"
	flagPaths    = "paths"
	flagTrace    = "trace-obstacles"
	flagTraceAll = "trace"
	flagHist     = "histogram"
	flagLogFile  = "log-file"
)

// NewApp returns the rhplan application writing its output to out.
func NewApp(out io.Writer) *cli.App {
	overrideFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  flagMaxSteps,
			Usage: "give up after `N` horizon steps",
		},
		&cli.StringFlag{
			Name:  flagBackend,
			Usage: "solve steps with `BACKEND` (alm or nlopt)",
		},
		&cli.BoolFlag{
			Name:  flagPaths,
			Usage: "print every planned path as JSON",
		},
		&cli.BoolFlag{
			Name:  flagTrace,
			Usage: "log every obstacle evaluation, requires --debug",
		},
		&cli.BoolFlag{
			Name:  flagTraceAll,
			Usage: "log every step of the planned scenarios without raising the log level",
		},
		&cli.IntFlag{
			Name:  flagHist,
			Usage: "print a histogram of the step lengths of every plan over `BINS` buckets",
		},
	}
	return &cli.App{
		Name:            "rhplan",
		Usage:           "plan obstacle free paths with a receding horizon",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to the size rotated `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "plan the scenario of a config file",
				UsageText: "rhplan plan --config FILE [--out plan.svg]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load the scenario from `FILE`",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "save a plot of the plan to `FILE`",
					},
				}, overrideFlags...),
				Action: PlanAction,
			},
			{
				Name:      "example",
				Usage:     "plan built-in scenarios, all of them when no name is given",
				UsageText: fmt.Sprintf("rhplan example [--out-dir DIR] [%s]...", config.ExampleNames()),
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagOutDir,
						Usage: "save a plot of every plan to `DIR`",
					},
				}, overrideFlags...),
				Action: ExampleAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of config files",
				Action: SchemaAction,
			},
		},
	}
}

// newLogger builds the command's logger. The returned function flushes and closes the log file.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewLogger("rhplan")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("rhplan")
	}
	logging.ReplaceGlobal(logger)
	logFile := c.String(flagLogFile)
	if logFile == "" {
		return logger, func() {}
	}
	appender, closer := logging.NewFileAppender(logFile)
	logger.AddAppender(appender)
	return logger, func() {
		utils.UncheckedError(logger.Sync())
		if err := closer.Close(); err != nil {
			logger.Warnw("cannot close log file", "file", logFile, "error", err)
		}
	}
}

// applyOverrides copies the command line overrides into the config.
func applyOverrides(c *cli.Context, cfg *config.Config) error {
	if c.IsSet(flagMaxSteps) {
		if cfg.Planner == nil {
			cfg.Planner = motionplan.NewBasicPlannerOptions()
		}
		cfg.Planner.MaxSteps = c.Int(flagMaxSteps)
	}
	if c.IsSet(flagBackend) {
		cfg.Backend = config.Backend(c.String(flagBackend))
	}
	return cfg.Validate()
}

// PlanAction plans the scenario of a config file.
func PlanAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	cfg, err := config.Read(c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(cfg.ConfigFilePath)
	}
	var plotFile func(*config.Config) string
	if out := c.String(flagOut); out != "" {
		plotFile = func(*config.Config) string { return out }
	}
	return runScenarios(c, []*config.Config{cfg}, plotFile, logger)
}

// ExampleAction plans built-in scenarios.
func ExampleAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	names := c.Args().Slice()
	if len(names) == 0 {
		names = config.ExampleNames()
	}
	cfgs := make([]*config.Config, 0, len(names))
	for _, name := range names {
		cfg, err := config.Example(name)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
	}
	var plotFile func(*config.Config) string
	if dir := c.String(flagOutDir); dir != "" {
		plotFile = func(cfg *config.Config) string { return filepath.Join(dir, cfg.Name+".svg") }
	}
	return runScenarios(c, cfgs, plotFile, logger)
}

// SchemaAction prints the JSON schema of config files.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

// runScenarios plans every config concurrently with its own step solver, prints a summary and
// saves a plot per scenario when plotFile is set.
func runScenarios(c *cli.Context, cfgs []*config.Config, plotFile func(*config.Config) string, logger logging.Logger) error {
	scenarios := make([]motionplan.Scenario, 0, len(cfgs))
	for _, cfg := range cfgs {
		if err := applyOverrides(c, cfg); err != nil {
			return errors.Wrapf(err, "scenario %q", cfg.Name)
		}
		scenario, err := cfg.Scenario()
		if err != nil {
			return err
		}
		scenario.StepSolver, err = cfg.NewStepSolver(logger)
		if err != nil {
			return errors.Wrapf(err, "scenario %q", cfg.Name)
		}
		scenario.Trace = c.Bool(flagTraceAll)
		if c.Bool(flagTrace) {
			obstacleLogger := logger.Sublogger("obstacles")
			for i, o := range scenario.Obstacles {
				scenario.Obstacles[i] = spatialmath.WithDebugLogging(o, obstacleLogger)
			}
		}
		scenarios = append(scenarios, scenario)
	}
	results, planErr := motionplan.PlanAll(c.Context, scenarios, nil, logger)
	if _, err := fmt.Fprintln(c.App.Writer, SummaryTable(results)); err != nil {
		return err
	}
	if bins := c.Int(flagHist); bins > 0 {
		if err := StepHistogram(c.App.Writer, results, bins); err != nil {
			return err
		}
	}
	if c.Bool(flagPaths) {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(c.App.Writer, string(out)); err != nil {
			return err
		}
	}
	if plotFile != nil {
		for i, result := range results {
			if result.Plan == nil {
				continue
			}
			cfg := cfgs[i]
			area := spatialmath.DefaultSearchArea()
			if cfg.SearchArea != nil {
				area = *cfg.SearchArea
			}
			filename := plotFile(cfg)
			if err := visualize.SavePlot(visualize.Scene{
				Title:     cfg.Name,
				Path:      result.Plan.Path,
				Start:     scenarios[i].Start,
				Goal:      scenarios[i].Goal,
				Obstacles: scenarios[i].Obstacles,
				Area:      area,
			}, filename); err != nil {
				return err
			}
			logger.Infow("saved plot", "scenario", cfg.Name, "file", filename)
		}
	}
	return planErr
}
