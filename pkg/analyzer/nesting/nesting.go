// Package nesting reports control flow statements nested too deeply.
package nesting

import (
	"context"
	"fmt"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const ID = "nesting-depth"

// DefaultMax is the deepest nesting allowed when max is unset.
const DefaultMax = 3

// Tracker counts nesting depth during a recursive descent.
type Tracker struct {
	Max    int
	Report func(n *ast.Node)

	depth int
}

// Check enters the nesting construct n. Within the limit it calls visit to
// descend; past it, n is reported and its subtree is not visited. The depth
// is restored on return even if visit panics.
func (t *Tracker) Check(n *ast.Node, visit func()) {
	t.depth++
	defer func() { t.depth-- }()

	if t.depth > t.Max {
		t.Report(n)
		return
	}
	visit()
}

// Depth returns the current nesting depth.
func (t *Tracker) Depth() int { return t.depth }

var descriptor = models.Descriptor{
	ID:              ID,
	Name:            "Control flow statements should not be nested too deeply",
	Description:     "Counts nested if, loop, switch and try statements. An else-if continues its chain rather than nesting.",
	DefaultSeverity: models.SeverityCritical,
	DefaultEnabled:  true,
	Params:          []models.Param{{Name: "max", Default: DefaultMax, Description: "Maximum allowed nesting depth"}},
}

// Rule reports the first statement of each branch that nests deeper than max.
type Rule struct{}

// New creates the nesting rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return []models.Descriptor{descriptor} }

func (*Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	limit := pass.IntParam(ID, "max", DefaultMax)
	lang := pass.Lang
	message := fmt.Sprintf("Refactor this code to not nest more than %d control flow statements.", limit)

	var decls []*ast.Node
	ast.Inspect(pass.File.Root, func(n *ast.Node) bool {
		if ast.Is(n, lang.Functions) || ast.Is(n, lang.Accessors) {
			decls = append(decls, n)
		}
		return true
	})

	for _, decl := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := &walker{
			lang: lang,
			tracker: &Tracker{
				Max: limit,
				Report: func(n *ast.Node) {
					pass.Reportf(ID, n.KeywordSpan(), "%s", message)
				},
			},
		}
		w.visit(lang.BodyOf(decl))
	}
	return nil
}

type walker struct {
	lang    *ast.Language
	tracker *Tracker
}

func (w *walker) nests(n *ast.Node) bool {
	l := w.lang
	return (ast.Is(n, l.Ifs) && !l.IsElseIf(n)) || ast.Is(n, l.Loops) || ast.Is(n, l.Switches) || ast.Is(n, l.Tries)
}

func (w *walker) visit(n *ast.Node) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		switch {
		case ast.Is(c, w.lang.Functions), ast.Is(c, w.lang.Accessors), ast.Is(c, w.lang.TypeDecls):
			// Reported on their own.
		case w.nests(c):
			w.tracker.Check(c, func() { w.visit(c) })
		default:
			w.visit(c)
		}
	}
}
