package complexity

import (
	"fmt"
	"slices"

	"github.com/panbanda/vigil/pkg/ast"
)

// Increment is one contribution to a cognitive complexity score.
type Increment struct {
	Span    ast.Span
	Nesting int
}

// Weight is the amount the increment adds: one plus its nesting.
func (i Increment) Weight() int { return 1 + i.Nesting }

// Message explains the increment as shown on a secondary location.
func (i Increment) Message() string {
	if i.Nesting == 0 {
		return "+1"
	}
	return fmt.Sprintf("+%d (incl %d for nesting)", i.Weight(), i.Nesting)
}

// Score is a cognitive complexity total and what contributed to it, in source order.
type Score struct {
	Total      int
	Increments []Increment
}

func (s *Score) add(span ast.Span, nesting int) {
	inc := Increment{Span: span, Nesting: nesting}
	s.Total += inc.Weight()
	s.Increments = append(s.Increments, inc)
}

type frame struct {
	node    *ast.Node
	nesting int
}

// Cognitive scores decl's body. Structures that break linear flow cost one
// plus their nesting; else, else-if, goto, mixed boolean operator sequences
// and recursive calls cost one flat. Nested functions and types are scored
// on their own; lambdas and local functions count towards decl and deepen
// the nesting.
func Cognitive(lang *ast.Language, sem ast.Semantic, decl *ast.Node) Score {
	var score Score
	body := lang.BodyOf(decl)
	if body == nil {
		return score
	}
	if sem == nil {
		sem = ast.NoSemantic{}
	}

	stack := []frame{{node: body}}
	push := func(nesting int, nodes ...*ast.Node) {
		for i := len(nodes) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: nodes[i], nesting: nesting})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, level := f.node, f.nesting

		switch {
		case n != body && (ast.Is(n, lang.Functions) || ast.Is(n, lang.Accessors) || ast.Is(n, lang.TypeDecls)):
			continue

		case ast.Is(n, lang.Ifs):
			if lang.IsElseIf(n) {
				score.add(n.KeywordSpan(), 0)
			} else {
				score.add(n.KeywordSpan(), level)
			}
			pushIf(lang, &score, n, level, push)
			continue

		case ast.Is(n, lang.Ternaries), ast.Is(n, lang.Switches), ast.Is(n, lang.Loops), ast.Is(n, lang.Catches):
			score.add(n.KeywordSpan(), level)
			push(level+1, n.Children...)
			continue

		case ast.Is(n, lang.Lambdas), ast.Is(n, lang.LocalFunctions):
			push(level+1, n.Children...)
			continue

		case ast.Is(n, lang.Gotos):
			score.add(n.KeywordSpan(), 0)

		case lang.IsLogical(n):
			if !lang.SameLogical(n, n.Child("left")) {
				score.add(n.Span, 0)
			}

		case ast.Is(n, lang.Invocations):
			if callee, ok := sem.Callee(n); ok && callee == decl {
				score.add(n.Span, 0)
			}
		}
		push(level, n.Children...)
	}

	slices.SortStableFunc(score.Increments, func(a, b Increment) int {
		switch {
		case a.Span.Before(b.Span):
			return -1
		case b.Span.Before(a.Span):
			return 1
		}
		return 0
	})
	return score
}

// pushIf schedules an if statement's parts: the condition stays at the if's
// level, the branches nest one deeper, and an else-if is handled as an if of
// its own. A plain else costs one flat.
func pushIf(lang *ast.Language, score *Score, n *ast.Node, level int, push func(int, ...*ast.Node)) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		c := n.Children[i]
		switch {
		case c.Field == "consequence":
			push(level+1, c)
		case c.Field == "alternative" && ast.Is(c, lang.Ifs):
			push(level, c)
		case c.Field == "alternative":
			score.add(firstLine(c.Span), 0)
			push(level+1, c)
		default:
			push(level, c)
		}
	}
}

// firstLine narrows a span to its first character, for statements whose
// keyword is not kept.
func firstLine(s ast.Span) ast.Span {
	s.EndLine = s.StartLine
	s.EndCol = s.StartCol + 1
	s.EndByte = s.StartByte + 1
	return s
}
