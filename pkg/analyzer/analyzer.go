// Package analyzer defines the rule contract and runs rules over parsed units.
//
// A [Rule] declares the diagnostics it can raise and inspects one file at a
// time through a [Pass]. The [Driver] builds passes, resolves which
// diagnostics are enabled for each path, and collects what rules report.
package analyzer

import (
	"context"
	"fmt"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

// Rule is one check, or a family of checks sharing an implementation.
type Rule interface {
	// Descriptors lists every diagnostic the rule can report.
	Descriptors() []models.Descriptor

	// Run inspects the pass's file. Reports of disabled diagnostics are
	// dropped by the pass, so a rule may report unconditionally.
	Run(ctx context.Context, pass *Pass) error
}

// Program is one unit of analysis: the lowered files plus the symbol and
// control-flow facilities of the backend that produced them.
type Program struct {
	Unit     *ast.Unit
	Semantic ast.Semantic
	// Flow is nil when the backend cannot build control-flow graphs.
	Flow cfg.Builder
}

// Secondary is a related location attached to a diagnostic.
type Secondary struct {
	Span    ast.Span
	Message string
}

// Issue is what a rule reports.
type Issue struct {
	Rule       string
	Span       ast.Span
	Message    string
	Secondary  []Secondary
	Properties map[string]string
}

// Pass is the per-file context a rule runs in.
type Pass struct {
	File     *ast.File
	Lang     *ast.Language
	Semantic ast.Semantic
	Flow     cfg.Builder

	path     string
	config   *config.Config
	lookup   func(id string) (models.Descriptor, bool)
	report   func(models.Diagnostic)
	resolved map[string]resolution
}

type resolution struct {
	enabled  bool
	severity models.Severity
}

func (p *Pass) resolve(id string) resolution {
	if r, ok := p.resolved[id]; ok {
		return r
	}
	var r resolution
	if d, ok := p.lookup(id); ok {
		r.enabled, r.severity = p.config.Resolve(d, p.path)
	}
	if p.resolved == nil {
		p.resolved = make(map[string]resolution)
	}
	p.resolved[id] = r
	return r
}

// Path returns the file path used for per-path configuration.
func (p *Pass) Path() string { return p.path }

// Enabled reports whether diagnostic id is enabled for this file.
func (p *Pass) Enabled(id string) bool {
	return p.resolve(id).enabled
}

// AnyEnabled reports whether any of the descriptors is enabled for this file.
func (p *Pass) AnyEnabled(ds []models.Descriptor) bool {
	for _, d := range ds {
		if p.Enabled(d.ID) {
			return true
		}
	}
	return false
}

// Params returns the effective settings of diagnostic id for this file.
func (p *Pass) Params(id string) config.RuleConfig {
	return p.config.Rule(id, p.path)
}

// IntParam reads an integer rule parameter, falling back to def when unset.
func (p *Pass) IntParam(id, name string, def int) int {
	return p.Params(id).Int(name, def)
}

// Report records an issue if its diagnostic is enabled.
func (p *Pass) Report(issue Issue) {
	r := p.resolve(issue.Rule)
	if !r.enabled {
		return
	}
	diag := models.Diagnostic{
		Rule:       issue.Rule,
		Message:    issue.Message,
		Severity:   r.severity,
		Location:   Location(issue.Span),
		Properties: issue.Properties,
	}
	for _, s := range issue.Secondary {
		diag.Secondary = append(diag.Secondary, models.SecondaryLocation{
			Location: Location(s.Span),
			Message:  s.Message,
		})
	}
	p.report(diag)
}

// Reportf records an issue with a formatted message and no secondary locations.
func (p *Pass) Reportf(rule string, at ast.Span, format string, args ...any) {
	p.Report(Issue{Rule: rule, Span: at, Message: fmt.Sprintf(format, args...)})
}

// Location converts a facade span.
func Location(s ast.Span) models.Location {
	return models.Location{
		File:      s.File,
		Line:      s.StartLine,
		Column:    s.StartCol,
		EndLine:   s.EndLine,
		EndColumn: s.EndCol,
	}
}

// RuleError records a rule that failed on a file.
type RuleError struct {
	Rule string
	File string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: rule %s: %v", e.File, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
