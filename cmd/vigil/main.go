package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/cache"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// exitFailure is the exit code for runs that could not complete, as
// opposed to runs that found issues at or above --fail-on.
const exitFailure = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			if msg := exit.Error(); msg != "" {
				color.New(color.FgRed).Fprintln(os.Stderr, msg)
			}
			os.Exit(exit.ExitCode())
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "vigil",
		Usage:    "Static analysis for Go, C# and Java",
		Version:  version,
		Metadata: make(map[string]any),
		Description: `vigil finds bugs and maintainability issues: nil dereferences, division
by zero, conditions that never change, duplicated branches, loops that
always exit on their first pass, excessive complexity and nesting.

Supports: Go, C#, Java`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Write CPU and memory profiles to <prefix>.cpu.pprof and <prefix>.mem.pprof",
			},
		},
		// main handles exit codes so tests can run the app in process
		ExitErrHandler: func(*cli.Context, error) {},
		Before:         startProfile,
		After:          stopProfile,
		Commands: []*cli.Command{
			analyzeCmd(),
			rulesCmd(),
			configCmd(),
			watchCmd(),
			mcpCmd(),
			cacheCmd(),
		},
	}
}

// commonFlags are accepted by every command that loads configuration.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"VIGIL_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log debug details to stderr",
		},
	}
}

// getPaths returns paths from positional args, defaulting to ["."].
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// newLogger logs text to w: debug and up with verbose, warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withLogger returns the command's context carrying its logger.
func withLogger(c *cli.Context) context.Context {
	return analyzer.WithLogger(c.Context, newLogger(c.App.ErrWriter, c.Bool("verbose")))
}

// loadConfig reads --config, or the first config file found in the working
// directory, or the defaults.
func loadConfig(c *cli.Context) (*config.LoadResult, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return config.LoadConfig(opts...)
}

// newService builds the analysis service for a command. --no-cache wins
// over the configuration.
func newService(c *cli.Context, cfg *config.Config) (*analysis.Service, error) {
	enabled := cfg.Cache.Enabled && !c.Bool("no-cache")
	dc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, enabled)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return analysis.New(analysis.WithConfig(cfg), analysis.WithCache(dc)), nil
}

func startProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	cpuFile, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	c.App.Metadata["pprofCPU"] = cpuFile
	return nil
}

func stopProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	pprof.StopCPUProfile()
	if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
		cpuFile.Close()
	}

	memFile, err := os.Create(prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Profiles written to %s.{cpu,mem}.pprof\n", prefix)
	return nil
}
