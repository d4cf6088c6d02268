package duplicates

import (
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
)

// ifBranches returns the branches of the if chain starting at n and whether
// the chain ends in a plain else.
func ifBranches(lang *ast.Language, n *ast.Node) ([]*ast.Node, bool) {
	var branches []*ast.Node
	for cur := n; cur != nil; {
		branches = append(branches, cur.Child("consequence"))
		alt := cur.Child("alternative")
		switch {
		case alt == nil:
			return branches, false
		case ast.Is(alt, lang.Ifs):
			cur = alt
		default:
			return append(branches, alt), true
		}
	}
	return branches, false
}

// Sections returns the switch sections belonging to sw, not to switches
// nested in it.
func Sections(lang *ast.Language, sw *ast.Node) []*ast.Node {
	var out []*ast.Node
	ast.Inspect(sw, func(n *ast.Node) bool {
		if n == sw {
			return true
		}
		if ast.Is(n, lang.SwitchSections) {
			out = append(out, n)
			return false
		}
		return !lang.IsFunctionLike(n)
	})
	return out
}

// SectionBody returns the statements of a switch section, without its labels.
func SectionBody(lang *ast.Language, section *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, c := range lang.Significant(section) {
		if ast.Is(c, lang.SwitchLabels) || ast.Is(c, lang.DefaultLabels) || c.Field == "value" {
			continue
		}
		out = append(out, lang.StatementsOf(c)...)
	}
	return out
}

func allEquivalent(lang *ast.Language, branches [][]*ast.Node) bool {
	for _, b := range branches[1:] {
		if !EquivalentSeq(lang, branches[0], b) {
			return false
		}
	}
	return true
}

const sameBranchesMessage = "Remove this conditional structure or edit its code blocks so that they're not all the same."

func checkIdenticalBranches(pass *analyzer.Pass) {
	lang := pass.Lang
	for n := range pass.File.Root.Preorder() {
		switch {
		case ast.Is(n, lang.Ifs) && !lang.IsElseIf(n):
			branches, hasElse := ifBranches(lang, n)
			if !hasElse {
				continue
			}
			seqs := make([][]*ast.Node, len(branches))
			for i, b := range branches {
				seqs[i] = lang.StatementsOf(b)
			}
			if allEquivalent(lang, seqs) {
				pass.Reportf(IdenticalBranchesID, n.KeywordSpan(), sameBranchesMessage)
			}

		case ast.Is(n, lang.Switches):
			sections := Sections(lang, n)
			if len(sections) < 2 || !hasDefault(lang, sections) {
				continue
			}
			seqs := make([][]*ast.Node, len(sections))
			for i, s := range sections {
				seqs[i] = SectionBody(lang, s)
			}
			if allEquivalent(lang, seqs) {
				pass.Reportf(IdenticalBranchesID, n.KeywordSpan(), sameBranchesMessage)
			}

		case ast.Is(n, lang.Ternaries):
			if Equivalent(lang, n.Child("consequence"), n.Child("alternative")) {
				pass.Reportf(IdenticalBranchesID, n.Span,
					`This conditional operation returns the same value whether the condition is "true" or "false".`)
			}
		}
	}
}

func hasDefault(lang *ast.Language, sections []*ast.Node) bool {
	for _, s := range sections {
		if lang.HasDefault(s) {
			return true
		}
	}
	return false
}

func checkSwitchCases(pass *analyzer.Pass) {
	lang := pass.Lang
	limit := pass.IntParam(TooManyCasesID, "max", DefaultMaxCases)
	for n := range pass.File.Root.Preorder() {
		if !ast.Is(n, lang.Switches) {
			continue
		}
		sections := Sections(lang, n)
		labels := 0
		oneLiners := true
		for _, s := range sections {
			labels += len(lang.Labels(s))
			if !isOneLiner(lang, s) {
				oneLiners = false
			}
		}
		if labels > limit && !oneLiners {
			pass.Reportf(TooManyCasesID, n.KeywordSpan(),
				"Reduce the number of switch cases from %d to at most %d.", labels, limit)
		}
	}
}

// isOneLiner reports whether a section does a single thing: at most one
// statement besides a closing break.
func isOneLiner(lang *ast.Language, section *ast.Node) bool {
	body := SectionBody(lang, section)
	if n := len(body); n > 0 && ast.Is(body[n-1], lang.Breaks) {
		body = body[:n-1]
	}
	return len(body) <= 1
}
