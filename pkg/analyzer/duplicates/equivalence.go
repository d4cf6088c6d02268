// Package duplicates finds repeated code: conditional structures whose
// branches are all the same, oversized switches, string literals repeated
// across a type, and methods with identical implementations.
package duplicates

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/vigil/pkg/ast"
)

// Equivalent reports whether a and b have the same shape and token text.
// Whitespace and comments are ignored, as is where a and b themselves sit:
// a consequence may equal an alternative.
func Equivalent(lang *ast.Language, a, b *ast.Node) bool {
	type pair struct{ a, b *ast.Node }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.Kind != p.b.Kind || p.a.Token != p.b.Token || p.a.Keyword != p.b.Keyword {
			return false
		}
		if ownText(p.a) != ownText(p.b) {
			return false
		}
		ca, cb := lang.Significant(p.a), lang.Significant(p.b)
		if len(ca) != len(cb) {
			return false
		}
		for i := range ca {
			if ca[i].Field != cb[i].Field {
				return false
			}
			stack = append(stack, pair{ca[i], cb[i]})
		}
	}
	return true
}

// EquivalentSeq compares two statement sequences element by element.
func EquivalentSeq(lang *ast.Language, as, bs []*ast.Node) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Equivalent(lang, as[i], bs[i]) {
			return false
		}
	}
	return true
}

// Fingerprint hashes what Equivalent compares, so equivalent trees always
// share a fingerprint.
func Fingerprint(lang *ast.Language, nodes ...*ast.Node) uint64 {
	d := xxhash.New()
	var stack []*ast.Node
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			_, _ = d.WriteString("\x00nil")
			continue
		}
		children := lang.Significant(n)
		_, _ = d.WriteString(string(n.Kind))
		_, _ = d.WriteString("\x00" + n.Token + "\x00" + n.Keyword + "\x00")
		_, _ = d.WriteString(ownText(n))
		_, _ = d.Write([]byte{0, byte(len(children)), byte(len(children) >> 8)})
		for _, c := range children {
			_, _ = d.WriteString(c.Field + "\x00")
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return d.Sum64()
}

// ownText is the text of n outside its children, with whitespace and
// comments removed. For a leaf it is the whole token.
func ownText(n *ast.Node) string {
	text := n.Text()
	if len(n.Children) == 0 || n.Span.EndByte <= n.Span.StartByte {
		return squeeze(text)
	}
	var b strings.Builder
	pos := n.Span.StartByte
	for _, c := range n.Children {
		if c.Span.StartByte > pos && c.Span.StartByte <= n.Span.EndByte {
			b.WriteString(slice(text, pos-n.Span.StartByte, c.Span.StartByte-n.Span.StartByte))
		}
		if c.Span.EndByte > pos {
			pos = c.Span.EndByte
		}
	}
	if pos < n.Span.EndByte {
		b.WriteString(slice(text, pos-n.Span.StartByte, n.Span.EndByte-n.Span.StartByte))
	}
	return squeeze(stripComments(b.String()))
}

func slice(s string, from, to int) string {
	if from < 0 || to > len(s) || from > to {
		return ""
	}
	return s[from:to]
}

// stripComments removes // and /* */ comments. The gaps between child
// nodes hold no string literals, so no quoting needs tracking.
func stripComments(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				end := strings.IndexByte(s[i:], '\n')
				if end < 0 {
					return b.String()
				}
				i += end
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func squeeze(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
