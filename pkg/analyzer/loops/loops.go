// Package loops reports loops that can run at most one iteration because
// they always jump out of, or back to the start of, their body.
package loops

import (
	"context"
	"fmt"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const ID = "single-iteration-loop"

// Jumps are the jump statements of one loop body, classified by whether a
// condition guards them.
type Jumps struct {
	ConditionalContinue    []*ast.Node
	ConditionalTerminate   []*ast.Node // break, return, throw
	UnconditionalContinue  []*ast.Node
	UnconditionalTerminate []*ast.Node
}

// Classify walks the body of loop once. Jumps inside nested loops, lambdas
// and local functions belong to those and are skipped.
func Classify(lang *ast.Language, loop *ast.Node) Jumps {
	var j Jumps
	ast.Inspect(loop, func(n *ast.Node) bool {
		if n == loop {
			return true
		}
		if ast.Is(n, lang.Loops) || lang.IsFunctionLike(n) || ast.Is(n, lang.TypeDecls) {
			return false
		}
		if !ast.Is(n, lang.Statements) {
			return true
		}
		cont := ast.Is(n, lang.Continues)
		if !cont && !ast.Is(n, lang.Breaks) && !ast.Is(n, lang.Returns) && !ast.Is(n, lang.Throws) {
			return true
		}
		cond := conditional(lang, loop, n)
		switch {
		case cont && cond:
			j.ConditionalContinue = append(j.ConditionalContinue, n)
		case cont:
			j.UnconditionalContinue = append(j.UnconditionalContinue, n)
		case cond:
			j.ConditionalTerminate = append(j.ConditionalTerminate, n)
		default:
			j.UnconditionalTerminate = append(j.UnconditionalTerminate, n)
		}
		return false
	})
	return j
}

// Violations returns the jumps that stop the loop from iterating: every
// unconditional continue and break, and unconditional returns and throws
// when no conditional continue lets the loop come round again.
func (j Jumps) Violations(lang *ast.Language) []*ast.Node {
	out := append([]*ast.Node(nil), j.UnconditionalContinue...)
	for _, n := range j.UnconditionalTerminate {
		if ast.Is(n, lang.Breaks) || len(j.ConditionalContinue) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// conditional reports whether stmt might not run on an iteration of loop:
// it sits under a branch, or in a try block after something that may throw.
func conditional(lang *ast.Language, loop, stmt *ast.Node) bool {
	for a := range stmt.Ancestors() {
		if a == loop {
			return false
		}
		switch {
		case ast.Is(a, lang.Ifs), ast.Is(a, lang.Switches), ast.Is(a, lang.Ternaries), ast.Is(a, lang.Catches):
			return true
		case ast.Is(a, lang.Tries) && mayThrowBefore(lang, a, stmt):
			return true
		}
	}
	return false
}

func mayThrowBefore(lang *ast.Language, try, stmt *ast.Node) bool {
	body := try.Child("body")
	if body == nil {
		for _, c := range try.Children {
			if ast.Is(c, lang.Blocks) {
				body = c
				break
			}
		}
	}
	if body == nil || !body.Contains(stmt) {
		return false
	}
	throwing := false
	ast.Inspect(body, func(n *ast.Node) bool {
		if throwing || lang.IsFunctionLike(n) {
			return false
		}
		before := n.Span.StartByte < stmt.Span.StartByte && !n.Contains(stmt)
		inReturn := ast.Is(stmt, lang.Returns) && stmt.Contains(n)
		if (before && mayThrow(lang, n)) || (inReturn && (mayThrow(lang, n) || isMemberAccess(lang, n))) {
			throwing = true
			return false
		}
		return true
	})
	return throwing
}

func mayThrow(lang *ast.Language, n *ast.Node) bool {
	return ast.Is(n, lang.Invocations) || ast.Is(n, lang.ObjectCreations) || ast.Is(n, lang.Throws)
}

// isMemberAccess matches property reads, which may throw too.
func isMemberAccess(lang *ast.Language, n *ast.Node) bool {
	return ast.Is(n, lang.MemberAccesses) && n.Field != "function"
}

var descriptor = models.Descriptor{
	ID:              ID,
	Name:            "Loops with at most one iteration should be refactored",
	Description:     "Reports jump statements that end every iteration of their loop unconditionally.",
	DefaultSeverity: models.SeverityMajor,
	DefaultEnabled:  true,
}

// Rule reports unconditional jumps out of loops.
type Rule struct{}

// New creates the loop rule.
func New() *Rule { return &Rule{} }

var _ analyzer.Rule = (*Rule)(nil)

func (*Rule) Descriptors() []models.Descriptor { return []models.Descriptor{descriptor} }

func (*Rule) Run(ctx context.Context, pass *analyzer.Pass) error {
	lang := pass.Lang
	for n := range pass.File.Root.Preorder() {
		if !ast.Is(n, lang.Loops) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, v := range Classify(lang, n).Violations(lang) {
			pass.Reportf(ID, v.KeywordSpan(), "Remove this %q statement or make it conditional.", keyword(v))
		}
	}
	return nil
}

func keyword(n *ast.Node) string {
	if n.Keyword != "" {
		return n.Keyword
	}
	if n.Kind == "ExprStmt" {
		return "panic"
	}
	return fmt.Sprint(n.Kind)
}
