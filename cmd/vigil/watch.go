package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/output"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-analyze",
		ArgsUsage: "[path]",
		Flags: append(commonFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must stay unchanged before re-analysis",
			},
			&cli.StringSliceFlag{
				Name:    "rule",
				Aliases: []string{"r"},
				Usage:   "Run only this rule (repeatable)",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	ctx := withLogger(c)
	log := analyzer.Logger(ctx)

	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	root, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	svc, err := newService(c, cfg)
	if err != nil {
		return err
	}
	only := c.StringSlice("rule")
	if err := checkRules(svc.Descriptors(), only); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(root, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetOutput(c.App.ErrWriter)

	formatter, err := newFormatter(c, output.FormatText, cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	// The cache makes re-running the whole tree cheap: unchanged units hit.
	rerun := func(ctx context.Context, changed []string) {
		log.LogAttrs(ctx, slog.LevelDebug, "re-analyzing", slog.Int("changed", len(changed)))
		report, err := svc.Analyze(ctx, []string{root}, analysis.Options{Root: root, Only: only})
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				formatter.Error("analysis failed: %v", err)
			}
			return
		}
		if err := formatter.Output(output.ReportView{Report: report}); err != nil {
			formatter.Error("%v", err)
		}
	}
	watcher.SetCallback(rerun)

	rerun(ctx, nil)
	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
