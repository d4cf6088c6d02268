package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/output"
	"github.com/panbanda/vigil/internal/progress"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/internal/vcs"
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run the rules over files and directories",
		ArgsUsage: "[path...]",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.StringFlag{
				Name:  "fail-on",
				Usage: "Exit with code 1 when an issue is at or above this severity (info, minor, major, critical, blocker)",
			},
			&cli.StringSliceFlag{
				Name:    "rule",
				Aliases: []string{"r"},
				Usage:   "Run only this rule (repeatable)",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Report only issues in files changed since this git ref",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw a progress bar",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	ctx := withLogger(c)
	log := analyzer.Logger(ctx)

	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if loaded.Source != "" {
		log.LogAttrs(ctx, slog.LevelDebug, "config", slog.String("source", loaded.Source))
	}

	formatName := c.String("format")
	if formatName == "" {
		formatName = cfg.Output.Format
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var failOn models.Severity
	if s := c.String("fail-on"); s != "" {
		if failOn, err = models.ParseSeverity(s); err != nil {
			return err
		}
	}

	svc, err := newService(c, cfg)
	if err != nil {
		return err
	}
	only := c.StringSlice("rule")
	if err := checkRules(svc.Descriptors(), only); err != nil {
		return err
	}

	root, err := filepath.Abs(".")
	if err != nil {
		return err
	}
	opts := analysis.Options{Root: root, Only: only}
	var tracker *progress.Tracker
	if !c.Bool("no-progress") {
		opts.OnStart = func(units int) {
			tracker = progress.NewTracker(c.App.ErrWriter, "Analyzing...", units)
		}
		opts.OnProgress = func(int, int, string) { tracker.Tick() }
	}

	report, err := svc.Analyze(ctx, getPaths(c), opts)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if ref := c.String("since"); ref != "" {
		if report, err = onlyChanged(report, root, ref); err != nil {
			return err
		}
	}

	formatter, err := newFormatter(c, format, cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(output.ReportView{Report: report}); err != nil {
		return err
	}

	return failOnExit(report, failOn)
}

// onlyChanged keeps the diagnostics in files changed since ref. Errors
// are kept: a unit that failed is unknown, not clean.
func onlyChanged(report *models.Report, root, ref string) (*models.Report, error) {
	repo, err := vcs.Open(root)
	if err != nil {
		return nil, err
	}
	changed, err := repo.ChangedSince(ref)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(changed))
	for _, path := range changed {
		keep[path] = true
	}

	var diags []models.Diagnostic
	for _, d := range report.Diagnostics {
		abs, err := filepath.Abs(d.Location.File)
		if err != nil {
			return nil, err
		}
		if keep[abs] {
			diags = append(diags, d)
		}
	}
	return models.NewReport(report.Files, diags, report.Errors), nil
}

// newFormatter writes to --output or to the app's writer. Color needs
// both the configuration and a terminal.
func newFormatter(c *cli.Context, format output.Format, colorConfigured bool) (*output.Formatter, error) {
	colored := colorConfigured && !color.NoColor
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, colored)
	}
	return output.NewWriterFormatter(format, c.App.Writer, colored), nil
}

// checkRules rejects --rule values that name no diagnostic.
func checkRules(descs []models.Descriptor, ids []string) error {
	known := make(map[string]bool, len(descs))
	for _, d := range descs {
		known[d.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("unknown rule %q (see vigil rules)", id)
		}
	}
	return nil
}

// failOnExit returns exit code 1 when the report has an issue at or above
// threshold. An empty threshold never fails.
func failOnExit(report *models.Report, threshold models.Severity) error {
	if threshold == "" || threshold == models.SeverityNone {
		return nil
	}
	highest := report.MaxSeverity()
	if highest == models.SeverityNone || !highest.AtLeast(threshold) {
		return nil
	}
	return cli.Exit(fmt.Sprintf("found %s issues (fail-on %s)", highest, threshold), 1)
}
