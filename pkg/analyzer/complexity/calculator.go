// Package complexity scores expressions and function bodies: the number of
// conditional operators in an expression, cyclomatic complexity, and
// nesting-weighted cognitive complexity.
package complexity

import "github.com/panbanda/vigil/pkg/ast"

// Calculator counts complexity-increasing nodes in a tree. Transparent nodes
// (parentheses, typically) are walked through without being counted.
type Calculator struct {
	Increasing  ast.Matcher
	Transparent ast.Matcher
}

func (c Calculator) participates(n *ast.Node) bool {
	return ast.Is(n, c.Increasing) || ast.Is(n, c.Transparent)
}

// IsRoot reports whether a calculation starts at n: n increases complexity
// and its parent takes no part in any calculation.
func (c Calculator) IsRoot(n *ast.Node) bool {
	return ast.Is(n, c.Increasing) && !c.participates(n.Parent())
}

// Complexity counts the increasing nodes reachable from root through
// increasing or transparent nodes only.
func (c Calculator) Complexity(root *ast.Node) int {
	if root == nil {
		return 0
	}
	total := 0
	stack := []*ast.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case ast.Is(n, c.Increasing):
			total++
		case n != root && !ast.Is(n, c.Transparent):
			continue
		}
		stack = append(stack, n.Children...)
	}
	return total
}

// Expression is the calculator for conditional operators: && and || and the
// ternary, with parentheses transparent.
func Expression(lang *ast.Language) Calculator {
	return Calculator{
		Increasing:  ast.AnyOf(lang.LogicalAnd, lang.LogicalOr, lang.Ternaries),
		Transparent: lang.Parenthesized,
	}
}
