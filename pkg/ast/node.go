package ast

import (
	"fmt"
	"iter"
)

// Kind is a grammar node type, such as "if_statement" or "IfStmt".
type Kind string

// Span is a source range. Lines and columns are 1-based; byte offsets are 0-based.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_column"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_column"`
	StartByte int    `json:"-"`
	EndByte   int    `json:"-"`
}

// IsZero reports whether the span was never set.
func (s Span) IsZero() bool {
	return s.StartLine == 0 && s.EndLine == 0
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Before reports whether s starts before o.
func (s Span) Before(o Span) bool {
	if s.StartLine != o.StartLine {
		return s.StartLine < o.StartLine
	}
	return s.StartCol < o.StartCol
}

// Node is one lowered syntax node. Only significant nodes are kept:
// punctuation and operator tokens are folded into Token and Keyword.
type Node struct {
	Kind     Kind
	Field    string // grammar field name under the parent, "" when unnamed
	Token    string // operator or literal token, e.g. "&&", "STRING", "break"
	Keyword  string // leading keyword, e.g. "if", "for", "return"
	Span     Span
	Children []*Node
	Raw      any // backend node

	parent  *Node
	file    *File
	id      uint32
	text    string
	hasText bool
}

// ID is unique within the node's Unit and never zero for attached nodes.
func (n *Node) ID() uint32 { return n.id }

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// File returns the file the node belongs to.
func (n *Node) File() *File { return n.file }

// Text returns the node's source text.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.hasText {
		return n.text
	}
	if n.file == nil {
		return ""
	}
	src := n.file.Source
	if n.Span.StartByte < 0 || n.Span.EndByte > len(src) || n.Span.StartByte > n.Span.EndByte {
		return ""
	}
	return string(src[n.Span.StartByte:n.Span.EndByte])
}

// SetText overrides the source text, for synthetic nodes.
func (n *Node) SetText(text string) *Node {
	n.text = text
	n.hasText = true
	return n
}

// Child returns the first child stored under field.
func (n *Node) Child(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenOf returns every child stored under field.
func (n *Node) ChildrenOf(field string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

// Add attaches child under field and returns the child.
func (n *Node) Add(field string, child *Node) *Node {
	child.Field = field
	child.parent = n
	n.Children = append(n.Children, child)
	return child
}

// Index returns the node's position among its parent's children, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// KeywordSpan returns the span of the leading keyword, falling back to the node span.
func (n *Node) KeywordSpan() Span {
	if n.Keyword == "" {
		return n.Span
	}
	s := n.Span
	s.EndLine = s.StartLine
	s.EndCol = s.StartCol + len(n.Keyword)
	s.EndByte = s.StartByte + len(n.Keyword)
	return s
}

// Contains reports whether o is n or lies below n.
func (n *Node) Contains(o *Node) bool {
	for p := o; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Preorder yields n and every descendant in source order. It uses an explicit
// stack so arbitrarily deep trees never exhaust the goroutine stack.
func (n *Node) Preorder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if n == nil {
			return
		}
		stack := []*Node{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
			for i := len(cur.Children) - 1; i >= 0; i-- {
				stack = append(stack, cur.Children[i])
			}
		}
	}
}

// Ancestors yields the parent chain of n, nearest first.
func (n *Node) Ancestors() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if n == nil {
			return
		}
		for p := n.parent; p != nil; p = p.parent {
			if !yield(p) {
				return
			}
		}
	}
}

// Inspect walks the tree in preorder. Returning false from fn skips the node's children.
func Inspect(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// Enclosing returns the nearest ancestor matching m.
func Enclosing(n *Node, m Matcher) *Node {
	for a := range n.Ancestors() {
		if Is(a, m) {
			return a
		}
	}
	return nil
}

// Unwrap strips nodes matching m (typically parentheses) and returns the first other node.
func Unwrap(n *Node, m Matcher) *Node {
	for n != nil && Is(n, m) && len(n.Children) > 0 {
		n = n.Children[0]
	}
	return n
}
