// Package analysis orchestrates a full run: file discovery, grouping into
// units, cached parallel rule execution and report assembly. The CLI, the
// watcher and the MCP server all go through it.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/panbanda/vigil/internal/cache"
	"github.com/panbanda/vigil/internal/fileproc"
	"github.com/panbanda/vigil/internal/scanner"
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/analyzer/rules"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

// Service orchestrates code analysis operations.
type Service struct {
	config *config.Config
	rules  []analyzer.Rule
	cache  *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithRules replaces the rule catalog.
func WithRules(r ...analyzer.Rule) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithCache sets the diagnostic cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.rules == nil {
		s.rules = rules.All()
	}
	return s
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *config.Config { return s.config }

// Descriptors lists every diagnostic of the service's rules.
func (s *Service) Descriptors() []models.Descriptor {
	return analyzer.NewDriver(s.config, s.rules).Descriptors()
}

// Options configures one run.
type Options struct {
	// Root is the directory per-path overrides are relative to.
	Root string
	// Only restricts the run to these diagnostic IDs.
	Only []string
	// OnStart is called once with the number of units.
	OnStart func(units int)
	// OnProgress is called after each unit with the unit's key.
	OnProgress analyzer.ProgressFunc
}

type unitResult struct {
	diags []models.Diagnostic
	errs  []string
}

// Analyze scans paths, runs the rules over every unit and returns the
// report. Units that fail to load or whose rules fail are listed in the
// report's errors; the run only fails when scanning fails or ctx is done.
func (s *Service) Analyze(ctx context.Context, paths []string, opts Options) (*models.Report, error) {
	log := analyzer.Logger(ctx)

	files, err := scanner.NewScanner(s.config).Scan(paths)
	if err != nil {
		return nil, err
	}
	units := analyzer.Group(files)
	log.LogAttrs(ctx, slog.LevelDebug, "scanned",
		slog.Int("files", len(files)), slog.Int("units", len(units)))
	if opts.OnStart != nil {
		opts.OnStart(len(units))
	}

	driverOpts := analyzer.Options{analyzer.WithRoot(opts.Root), analyzer.WithOnly(opts.Only...)}
	log.LogAttrs(ctx, slog.LevelDebug, "driver", driverOpts.LogAttr())
	driver := analyzer.NewDriver(s.config, s.rules, driverOpts)

	only := slices.Clone(opts.Only)
	slices.Sort(only)
	fingerprint := s.config.Fingerprint() + "|" + strings.Join(only, ",")

	tracker := analyzer.NewTracker(opts.OnProgress)
	tracker.Add(len(units))
	results, perrs := fileproc.Map(ctx, units, s.config.Analysis.Workers,
		func(src analyzer.Source) string { return src.Key },
		func(ctx context.Context, src analyzer.Source) (unitResult, error) {
			r, err := s.analyzeUnit(ctx, driver, src, fingerprint)
			tracker.Tick(src.Key, len(r.diags))
			return r, err
		},
		nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		diags []models.Diagnostic
		errs  []string
	)
	for _, r := range results {
		diags = append(diags, r.diags...)
		errs = append(errs, r.errs...)
	}
	if perrs != nil {
		for _, pe := range perrs.Errors {
			log.LogAttrs(ctx, slog.LevelWarn, "unit skipped",
				slog.String("unit", pe.Path), slog.Any("error", pe.Err))
			errs = append(errs, pe.Error())
		}
	}
	slices.Sort(errs)
	log.LogAttrs(ctx, slog.LevelDebug, "analyzed",
		slog.Int("units", tracker.Current()), slog.Int("findings", tracker.Findings()))

	return models.NewReport(len(files), diags, errs), nil
}

func (s *Service) analyzeUnit(ctx context.Context, driver *analyzer.Driver, src analyzer.Source, fingerprint string) (unitResult, error) {
	log := analyzer.Logger(ctx)

	var hash string
	if s.cache != nil && s.cache.Enabled() {
		h, err := cache.HashFiles(src.Paths, fingerprint)
		if err != nil {
			return unitResult{}, err
		}
		hash = h
		if diags, ok := s.cache.Get(src.Key, hash); ok {
			log.LogAttrs(ctx, slog.LevelDebug, "cache hit", slog.String("unit", src.Key))
			return unitResult{diags: diags}, nil
		}
	}

	prog, err := analyzer.Load(ctx, src)
	if err != nil {
		return unitResult{}, err
	}

	diags, err := driver.Run(ctx, prog)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return unitResult{}, err
		}
		// rule failures keep the other rules' diagnostics but are not cached
		return unitResult{diags: diags, errs: strings.Split(err.Error(), "\n")}, nil
	}

	if hash != "" {
		if err := s.cache.Set(src.Key, hash, diags); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "cache write failed",
				slog.String("unit", src.Key), slog.Any("error", err))
		}
	}
	return unitResult{diags: diags}, nil
}
