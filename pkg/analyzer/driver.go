package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

// Option configures a [Driver].
type Option interface {
	apply(d *Driver)
	LogAttr() slog.Attr
}

// Options is a list of [Option] values that itself satisfies [Option].
type Options []Option

func (o Options) apply(d *Driver) {
	for _, opt := range o {
		if opt != nil {
			opt.apply(d)
		}
	}
}

// LogAttr is for logging with [slog.Logger.LogAttrs].
func (o Options) LogAttr() slog.Attr {
	as := make([]slog.Attr, 0, len(o))
	for _, opt := range o {
		if opt != nil {
			as = append(as, opt.LogAttr())
		}
	}
	return slog.Attr{Key: "options", Value: slog.GroupValue(as...)}
}

// WithRoot sets the directory per-path configuration is relative to.
func WithRoot(root string) Option { return rootOption{root: root} }

type rootOption struct{ root string }

func (o rootOption) apply(d *Driver)    { d.root = o.root }
func (o rootOption) LogAttr() slog.Attr { return slog.String("root", o.root) }

// WithOnly restricts the run to the given diagnostic IDs. Rules without any
// of them are skipped and their other diagnostics are dropped.
func WithOnly(ids ...string) Option { return onlyOption{ids: ids} }

type onlyOption struct{ ids []string }

func (o onlyOption) apply(d *Driver) {
	if len(o.ids) == 0 {
		return
	}
	d.only = make(map[string]bool, len(o.ids))
	for _, id := range o.ids {
		d.only[id] = true
	}
}

func (o onlyOption) LogAttr() slog.Attr { return slog.Any("only", o.ids) }

// Driver runs a fixed rule set over programs. It holds no per-run state and
// may be shared by concurrent workers.
type Driver struct {
	rules       []Rule
	config      *config.Config
	descriptors map[string]models.Descriptor
	root        string
	only        map[string]bool
}

// NewDriver prepares rules for running under cfg. A nil cfg means defaults.
func NewDriver(cfg *config.Config, rules []Rule, opts ...Option) *Driver {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Driver{
		rules:       rules,
		config:      cfg,
		descriptors: make(map[string]models.Descriptor),
	}
	Options(opts).apply(d)
	for _, r := range rules {
		for _, desc := range r.Descriptors() {
			d.descriptors[desc.ID] = desc
		}
	}
	return d
}

// Descriptors returns every registered descriptor sorted by ID.
func (d *Driver) Descriptors() []models.Descriptor {
	out := make([]models.Descriptor, 0, len(d.descriptors))
	for _, desc := range d.descriptors {
		out = append(out, desc)
	}
	slices.SortFunc(out, func(a, b models.Descriptor) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (d *Driver) lookup(id string) (models.Descriptor, bool) {
	if d.only != nil && !d.only[id] {
		return models.Descriptor{}, false
	}
	desc, ok := d.descriptors[id]
	return desc, ok
}

func (d *Driver) relative(path string) string {
	if d.root == "" {
		return filepath.ToSlash(path)
	}
	if rel, err := filepath.Rel(d.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// Run applies every rule to every file of prog. Diagnostics are returned
// sorted. A failing rule does not stop the others: its error is wrapped in a
// [RuleError] and joined into the returned error. Cancellation stops the run
// and is returned as is.
func (d *Driver) Run(ctx context.Context, prog *Program) ([]models.Diagnostic, error) {
	log := Logger(ctx)

	var (
		mu    sync.Mutex
		diags []models.Diagnostic
		errs  []error
	)
	collect := func(diag models.Diagnostic) {
		mu.Lock()
		diags = append(diags, diag)
		mu.Unlock()
	}

	for _, file := range prog.Unit.Files {
		if file.Root == nil {
			continue
		}
		for _, rule := range d.rules {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pass := &Pass{
				File:     file,
				Lang:     file.Language,
				Semantic: prog.Semantic,
				Flow:     prog.Flow,
				path:     d.relative(file.Path),
				config:   d.config,
				lookup:   d.lookup,
				report:   collect,
			}
			descs := rule.Descriptors()
			if !pass.AnyEnabled(descs) {
				continue
			}
			if err := rule.Run(ctx, pass); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				id := descs[0].ID
				log.LogAttrs(ctx, slog.LevelWarn, "rule failed",
					slog.String("rule", id), slog.String("file", file.Path), slog.Any("error", err))
				errs = append(errs, &RuleError{Rule: id, File: file.Path, Err: err})
			}
		}
	}

	models.SortDiagnostics(diags)
	return diags, errors.Join(errs...)
}

// RunRule runs a single rule over prog with cfg, for tests and tooling.
func RunRule(ctx context.Context, rule Rule, prog *Program, cfg *config.Config) ([]models.Diagnostic, error) {
	return NewDriver(cfg, []Rule{rule}).Run(ctx, prog)
}
