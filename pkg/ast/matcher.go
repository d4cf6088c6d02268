package ast

// Matcher classifies nodes. Most roles are a plain set of kinds; grammars that
// share one kind across operators (binary_expression for && and ||) refine the
// set with a token.
type Matcher interface {
	Match(n *Node) bool
}

// Is reports whether n is non-nil and matched by m. A nil matcher matches nothing.
func Is(n *Node, m Matcher) bool {
	return n != nil && m != nil && m.Match(n)
}

// KindSet matches nodes by kind.
type KindSet map[Kind]bool

// Kinds builds a KindSet.
func Kinds(kinds ...Kind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s KindSet) Match(n *Node) bool { return s[n.Kind] }

// TokenSet matches nodes of the given kinds carrying one of the given tokens.
type TokenSet struct {
	Kinds  KindSet
	Tokens map[string]bool
}

// Tokens builds a TokenSet for a single kind.
func Tokens(kind Kind, tokens ...string) TokenSet {
	s := TokenSet{Kinds: Kinds(kind), Tokens: make(map[string]bool, len(tokens))}
	for _, t := range tokens {
		s.Tokens[t] = true
	}
	return s
}

func (s TokenSet) Match(n *Node) bool { return s.Kinds[n.Kind] && s.Tokens[n.Token] }

// MatcherFunc adapts a predicate.
type MatcherFunc func(n *Node) bool

func (f MatcherFunc) Match(n *Node) bool { return f(n) }

type anyOf []Matcher

func (ms anyOf) Match(n *Node) bool {
	for _, m := range ms {
		if m != nil && m.Match(n) {
			return true
		}
	}
	return false
}

// AnyOf matches when any of ms matches.
func AnyOf(ms ...Matcher) Matcher { return anyOf(ms) }

// Nothing matches no node.
var Nothing Matcher = MatcherFunc(func(*Node) bool { return false })
