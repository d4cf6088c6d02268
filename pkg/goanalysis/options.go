package goanalysis

import (
	"flag"
	"log/slog"
	"strings"
)

// Option configures a [New] analyzer.
type Option interface {
	apply(r *runOptions)
	LogAttr() slog.Attr
}

// Options is a list of [Option] values that itself satisfies the [Option] interface.
type Options []Option

// LogValue implements [slog.LogValuer].
func (o Options) LogValue() slog.Value {
	as := make([]slog.Attr, 0, len(o))
	for _, opt := range o {
		if opt != nil {
			as = append(as, opt.LogAttr())
		}
	}
	return slog.GroupValue(as...)
}

func (o Options) apply(r *runOptions) {
	for _, opt := range o {
		if opt != nil {
			opt.apply(r)
		}
	}
}

// LogAttr is for logging with [slog.Logger.LogAttrs].
func (o Options) LogAttr() slog.Attr {
	return slog.Any("options", o)
}

// WithConfig is an [Option] to load rule settings from a vigil
// configuration file instead of the defaults.
func WithConfig(path string) Option { return configOption{path: path} }

type configOption struct{ path string }

func (o configOption) apply(r *runOptions) { r.config = o.path }
func (o configOption) LogAttr() slog.Attr  { return slog.String("config", o.path) }

// WithRules is an [Option] to run only the given diagnostic IDs.
func WithRules(ids ...string) Option { return rulesOption{ids: ids} }

type rulesOption struct{ ids []string }

func (o rulesOption) apply(r *runOptions) { r.rules = append(r.rules, o.ids...) }
func (o rulesOption) LogAttr() slog.Attr  { return slog.Any("rules", o.ids) }

// WithGenerated is an [Option] to configure diagnostics in generated files.
func WithGenerated(generated bool) Option { return generatedOption{generated: generated} }

type generatedOption struct{ generated bool }

func (o generatedOption) apply(r *runOptions) { r.generated = o.generated }
func (o generatedOption) LogAttr() slog.Attr  { return slog.Bool("generated", o.generated) }

// registerFlags binds the run options to analyzer flags.
func registerFlags(flags *flag.FlagSet, r *runOptions) {
	flags.StringVar(&r.config, "config", r.config, "vigil configuration file")
	flags.BoolVar(&r.generated, "generated", r.generated, "check generated files")
	flags.Var((*ruleList)(&r.rules), "rule", "comma-separated diagnostic IDs to run (default: all enabled)")
}

// ruleList is a comma-separated [flag.Value].
type ruleList []string

func (l *ruleList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *ruleList) Set(s string) error {
	for id := range strings.SplitSeq(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			*l = append(*l, id)
		}
	}
	return nil
}
