package duplicates

import (
	"fmt"
	"slices"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
)

// LiteralGroup is one string value and every place it occurs, in source order.
type LiteralGroup struct {
	Value       string
	Occurrences []*ast.Node
}

// literalScopes returns the outermost type declarations of the file, then
// the file root itself, which covers everything outside them.
func literalScopes(lang *ast.Language, root *ast.Node) []*ast.Node {
	var scopes []*ast.Node
	ast.Inspect(root, func(n *ast.Node) bool {
		if n != root && ast.Is(n, lang.TypeDecls) {
			scopes = append(scopes, n)
			return false
		}
		return true
	})
	return append(scopes, root)
}

// DuplicateLiterals groups the string literals of scope by value and returns
// the groups occurring more than threshold times. Literals shorter than
// minLength, those in metadata (attributes, tags, imports) and those spelling
// a parameter name of their enclosing function are ignored. Type
// declarations nested below scope are skipped unless scope is one itself.
func DuplicateLiterals(lang *ast.Language, scope *ast.Node, threshold, minLength int) []LiteralGroup {
	byValue := map[string]*LiteralGroup{}
	var order []string
	ast.Inspect(scope, func(n *ast.Node) bool {
		switch {
		case ast.Is(n, lang.NonCode):
			return false
		case n != scope && ast.Is(n, lang.TypeDecls) && !ast.Is(scope, lang.TypeDecls):
			return false
		case !ast.Is(n, lang.StringLiterals):
			return true
		}
		value := lang.LiteralValue(n)
		if len(value) < minLength || isParameterName(lang, n, value) {
			return false
		}
		g, ok := byValue[value]
		if !ok {
			g = &LiteralGroup{Value: value}
			byValue[value] = g
			order = append(order, value)
		}
		g.Occurrences = append(g.Occurrences, n)
		return false
	})

	var out []LiteralGroup
	for _, v := range order {
		g := byValue[v]
		if len(g.Occurrences) <= threshold {
			continue
		}
		slices.SortStableFunc(g.Occurrences, func(a, b *ast.Node) int {
			return a.Span.StartByte - b.Span.StartByte
		})
		out = append(out, *g)
	}
	return out
}

func isParameterName(lang *ast.Language, lit *ast.Node, value string) bool {
	fn := ast.Enclosing(lit, ast.MatcherFunc(lang.IsFunctionLike))
	if fn == nil {
		return false
	}
	return slices.Contains(lang.ParamNames(fn), value)
}

func checkLiterals(pass *analyzer.Pass) {
	lang := pass.Lang
	threshold := pass.IntParam(DuplicateLiteralID, "threshold", DefaultLiteralThreshold)
	minLength := pass.IntParam(DuplicateLiteralID, "min_length", DefaultLiteralMinLength)

	for _, scope := range literalScopes(lang, pass.File.Root) {
		for _, g := range DuplicateLiterals(lang, scope, threshold, minLength) {
			first := g.Occurrences[0]
			issue := analyzer.Issue{
				Rule:    DuplicateLiteralID,
				Span:    first.Span,
				Message: fmt.Sprintf("Define a constant instead of using this literal '%s' %d times.", g.Value, len(g.Occurrences)),
			}
			for _, o := range g.Occurrences[1:] {
				issue.Secondary = append(issue.Secondary, analyzer.Secondary{Span: o.Span, Message: "Duplication"})
			}
			pass.Report(issue)
		}
	}
}
