// Package symbolic runs path-sensitive checks over the control-flow graph
// of each function body.
//
// For every declaration the [Rule] first runs the classic checks, which
// only look at syntax. It then creates the enabled check types, builds the
// body's graph and lets one [Engine] explore it, feeding each check the
// program states it reaches. Declarations whose backend cannot build a
// graph get the classic checks only.
package symbolic

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/analyzer/duplicates"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
	"github.com/panbanda/vigil/pkg/models"
)

const SelfAssignmentID = "self-assignment"

var selfAssignment = models.Descriptor{
	ID:              SelfAssignmentID,
	Name:            "Variables should not be self-assigned",
	Description:     "Reports assignments whose target and value are the same expression.",
	DefaultSeverity: models.SeverityMajor,
	DefaultEnabled:  true,
}

// EngineError is an unexpected failure while exploring one declaration.
type EngineError struct {
	Declaration string
	Location    models.Location
	Err         error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s:%d:%d: symbolic execution of %s: %v",
		e.Location.File, e.Location.Line, e.Location.Column, e.Declaration, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Rule dispatches declarations to the classic and symbolic checks.
type Rule struct {
	checks []CheckType
}

// New creates the rule with the built-in checks.
func New() *Rule { return NewRunner(DefaultChecks()...) }

// NewRunner creates the rule with the given check types.
func NewRunner(checks ...CheckType) *Rule { return &Rule{checks: checks} }

var _ analyzer.Rule = (*Rule)(nil)

func (r *Rule) Descriptors() []models.Descriptor {
	out := []models.Descriptor{selfAssignment}
	for _, t := range r.checks {
		out = append(out, t.Descriptors...)
	}
	return out
}

// Run analyzes every declaration of the file. A failing declaration does
// not stop the others; the failures are joined into the returned error.
func (r *Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	var errs []error
	for _, decl := range pass.Lang.Declarations(pass.File.Root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pass.Enabled(SelfAssignmentID) {
			checkSelfAssignment(pass, decl)
		}
		if pass.Flow == nil {
			continue
		}
		if err := r.execute(ctx, pass, decl); err != nil {
			if isCancellation(err) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Active returns the checks to run on decl: one per type with at least one
// enabled diagnostic, minus those that decline to run.
func (r *Rule) Active(pass *analyzer.Pass, decl *ast.Node) []Check {
	var checks []Check
	session := NewSession(pass, decl)
	for _, t := range r.checks {
		if !pass.AnyEnabled(t.Descriptors) {
			continue
		}
		c := t.New(session)
		if e, ok := c.(executor); ok && !e.ShouldExecute() {
			continue
		}
		checks = append(checks, c)
	}
	return checks
}

func (r *Rule) execute(ctx context.Context, pass *analyzer.Pass, decl *ast.Node) error {
	checks := r.Active(pass, decl)
	if len(checks) == 0 {
		return nil
	}
	g, err := pass.Flow.Build(ctx, decl)
	switch {
	case errors.Is(err, cfg.ErrUnsupported):
		return nil
	case err != nil:
		return wrap(pass.Lang, decl, err)
	}

	engine := NewEngine(g, NewSession(pass, decl), checks)
	var (
		catcher panics.Catcher
		runErr  error
	)
	catcher.Try(func() {
		_, runErr = engine.Run(ctx)
	})
	if rec := catcher.Recovered(); rec != nil {
		runErr = rec.AsError()
	}
	if runErr == nil {
		return nil
	}
	return wrap(pass.Lang, decl, runErr)
}

// wrap adds the declaration to an engine failure. Cancellation is returned
// as is.
func wrap(lang *ast.Language, decl *ast.Node, err error) error {
	if isCancellation(err) {
		return err
	}
	name := lang.NameText(decl)
	if name == "" {
		name = "function literal"
	}
	return &EngineError{Declaration: name, Location: analyzer.Location(decl.Span), Err: err}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// checkSelfAssignment reports `x = x` in decl's body. Nested functions are
// declarations of their own.
func checkSelfAssignment(pass *analyzer.Pass, decl *ast.Node) {
	lang := pass.Lang
	body := lang.BodyOf(decl)
	if body == nil {
		return
	}
	walk(lang, body, func(n *ast.Node) {
		if !ast.Is(n, lang.Assignments) || n.Token != "=" {
			return
		}
		lefts, rights := n.ChildrenOf("left"), n.ChildrenOf("right")
		if len(lefts) == 0 || len(lefts) != len(rights) {
			return
		}
		for i, l := range lefts {
			if !ast.Is(l, lang.Identifiers) && !ast.Is(l, lang.MemberAccesses) {
				return
			}
			if !duplicates.Equivalent(lang, l, rights[i]) {
				return
			}
		}
		pass.Reportf(SelfAssignmentID, n.Span, "Remove or correct this useless self-assignment.")
	})
}
