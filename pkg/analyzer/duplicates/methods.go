package duplicates

import (
	"fmt"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
)

// DuplicatePair is a method whose implementation repeats an earlier one.
type DuplicatePair struct {
	Original  *ast.Node
	Duplicate *ast.Node
}

// minStatements is the smallest body considered for duplication; one-line
// delegating methods are often identical on purpose.
const minStatements = 2

// DuplicateMethods compares sibling methods pairwise. Parameters, type
// parameters and bodies must all be equivalent. A method found to duplicate
// an earlier one is removed from further comparison, so each method is
// reported at most once.
func DuplicateMethods(lang *ast.Language, methods []*ast.Node) []DuplicatePair {
	type candidate struct {
		decl *ast.Node
		hash uint64
	}
	var remaining []candidate
	for _, m := range methods {
		body := lang.BodyOf(m)
		if len(lang.StatementsOf(body)) < minStatements {
			continue
		}
		remaining = append(remaining, candidate{decl: m, hash: Fingerprint(lang, lang.Params(m), lang.TypeParams(m), body)})
	}

	var pairs []DuplicatePair
	for len(remaining) > 0 {
		first := remaining[0]
		remaining = remaining[1:]
		kept := remaining[:0]
		for _, c := range remaining {
			if c.hash == first.hash && sameImplementation(lang, first.decl, c.decl) {
				pairs = append(pairs, DuplicatePair{Original: first.decl, Duplicate: c.decl})
				continue
			}
			kept = append(kept, c)
		}
		remaining = kept
	}
	return pairs
}

func sameImplementation(lang *ast.Language, a, b *ast.Node) bool {
	return Equivalent(lang, lang.Params(a), lang.Params(b)) &&
		Equivalent(lang, lang.TypeParams(a), lang.TypeParams(b)) &&
		Equivalent(lang, lang.BodyOf(a), lang.BodyOf(b))
}

func checkMethods(pass *analyzer.Pass) {
	lang := pass.Lang
	if lang.MethodGroups == nil {
		return
	}
	word := "method"
	if lang.ID == ast.LangGo {
		word = "function"
	}
	for _, group := range lang.MethodGroups(pass.File.Root) {
		for _, p := range DuplicateMethods(lang, group) {
			pass.Report(analyzer.Issue{
				Rule:      DuplicateMethodID,
				Span:      lang.NameSpan(p.Duplicate),
				Message:   fmt.Sprintf("Update this %s so that its implementation is not identical to '%s'.", word, lang.NameText(p.Original)),
				Secondary: []analyzer.Secondary{{Span: lang.NameSpan(p.Original), Message: "original implementation"}},
			})
		}
	}
}
