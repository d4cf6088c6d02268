package ast

// Language describes which node kinds play which role in one grammar, plus
// the few extraction hooks that cannot be expressed as a kind set.
// Nil matchers match nothing and nil hooks fall back to a generic answer.
type Language struct {
	ID LanguageID

	Functions      Matcher // methods, constructors, top-level functions
	Accessors      Matcher // property accessors
	TypeDecls      Matcher
	Lambdas        Matcher
	LocalFunctions Matcher

	Loops          Matcher
	Ifs            Matcher
	Switches       Matcher
	SwitchSections Matcher
	SwitchLabels   Matcher
	DefaultLabels  Matcher
	Ternaries      Matcher
	Tries          Matcher
	Catches        Matcher

	Returns   Matcher
	Throws    Matcher
	Breaks    Matcher
	Continues Matcher
	Gotos     Matcher

	LogicalAnd    Matcher
	LogicalOr     Matcher
	Parenthesized Matcher

	Statements      Matcher
	Blocks          Matcher
	Identifiers     Matcher
	StringLiterals  Matcher
	Invocations     Matcher
	ObjectCreations Matcher
	MemberAccesses  Matcher
	Parameters      Matcher
	Variables       Matcher
	Assignments     Matcher
	Trivia          Matcher // comments

	// NonCode matches contexts whose literals are metadata rather than code:
	// attributes, annotations, imports, struct tags.
	NonCode Matcher

	// Accept is the constant a certificate callback returns to accept a certificate.
	Accept any

	DeclarationName  func(decl *Node) *Node
	Body             func(decl *Node) *Node
	ParameterList    func(decl *Node) *Node
	TypeParameters   func(decl *Node) *Node
	StringValue      func(lit *Node) string
	CalleeName       func(call *Node) string
	Arguments        func(call *Node) []*Node
	ReturnValue      func(ret *Node) *Node
	MethodGroups     func(root *Node) [][]*Node
	CertificateSinks func(n *Node) (*Node, bool)
	DangerousMember  func(n *Node) bool
	// AnonymousImplementation returns the callback method of an object
	// creation with an inline class body.
	AnonymousImplementation func(n *Node) *Node
	// Dereference returns the operand a node dereferences, or nil.
	Dereference func(n *Node) *Node
	// Division returns the divisor of a division or remainder, or nil.
	Division func(n *Node) *Node
}

// IsFunctionLike reports whether n introduces its own body.
func (l *Language) IsFunctionLike(n *Node) bool {
	return Is(n, l.Functions) || Is(n, l.Accessors) || Is(n, l.Lambdas) || Is(n, l.LocalFunctions)
}

// Name returns the declaration's name node.
func (l *Language) Name(decl *Node) *Node {
	if l.DeclarationName != nil {
		return l.DeclarationName(decl)
	}
	return decl.Child("name")
}

// NameText returns the declaration's name, or "".
func (l *Language) NameText(decl *Node) string {
	return l.Name(decl).Text()
}

// NameSpan returns the span to report a declaration at.
func (l *Language) NameSpan(decl *Node) Span {
	if name := l.Name(decl); name != nil {
		return name.Span
	}
	return decl.KeywordSpan()
}

// BodyOf returns a declaration's body.
func (l *Language) BodyOf(decl *Node) *Node {
	if l.Body != nil {
		return l.Body(decl)
	}
	return decl.Child("body")
}

// ParamNames lists the declaration's parameter names in order.
func (l *Language) ParamNames(decl *Node) []string {
	list := l.Params(decl)
	if list == nil {
		return nil
	}
	var names []string
	for _, p := range list.Children {
		if !Is(p, l.Parameters) {
			continue
		}
		for _, name := range p.ChildrenOf("name") {
			names = append(names, name.Text())
		}
	}
	return names
}

// Params returns the declaration's parameter list node.
func (l *Language) Params(decl *Node) *Node {
	if l.ParameterList != nil {
		return l.ParameterList(decl)
	}
	return decl.Child("parameters")
}

// TypeParams returns the declaration's type parameter list node.
func (l *Language) TypeParams(decl *Node) *Node {
	if l.TypeParameters != nil {
		return l.TypeParameters(decl)
	}
	return decl.Child("type_parameters")
}

// LiteralValue returns the unquoted value of a string literal.
func (l *Language) LiteralValue(lit *Node) string {
	if l.StringValue != nil {
		return l.StringValue(lit)
	}
	return trimQuotes(lit.Text())
}

// Args returns the argument expressions of an invocation or object creation.
func (l *Language) Args(call *Node) []*Node {
	if l.Arguments != nil {
		return l.Arguments(call)
	}
	list := call.Child("arguments")
	if list == nil {
		return nil
	}
	return l.Significant(list)
}

// Returned returns the expression of a return statement, or nil.
func (l *Language) Returned(ret *Node) *Node {
	if l.ReturnValue != nil {
		return l.ReturnValue(ret)
	}
	for _, c := range ret.Children {
		if !Is(c, l.Trivia) {
			return c
		}
	}
	return nil
}

// Significant returns n's children without trivia.
func (l *Language) Significant(n *Node) []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !Is(c, l.Trivia) {
			out = append(out, c)
		}
	}
	return out
}

// StatementsOf flattens a block into its statements; a lone statement is returned as is.
func (l *Language) StatementsOf(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if Is(n, l.Blocks) {
		var out []*Node
		for _, c := range l.Significant(n) {
			if Is(c, l.Statements) {
				out = append(out, c)
			}
		}
		return out
	}
	return []*Node{n}
}

// IsElseIf reports whether an if statement is the alternative of another if.
func (l *Language) IsElseIf(n *Node) bool {
	return Is(n, l.Ifs) && n.Field == "alternative" && Is(n.Parent(), l.Ifs)
}

// HasDefault reports whether a switch section is, or carries, a default label.
func (l *Language) HasDefault(section *Node) bool {
	if Is(section, l.DefaultLabels) {
		return true
	}
	for _, c := range section.Children {
		if Is(c, l.DefaultLabels) {
			return true
		}
	}
	return false
}

// Labels returns the non-default case labels of a switch section. Grammars
// without label nodes treat a non-default section as its own label.
func (l *Language) Labels(section *Node) []*Node {
	if l.SwitchLabels == nil {
		if l.HasDefault(section) {
			return nil
		}
		return []*Node{section}
	}
	var out []*Node
	for _, c := range section.Children {
		if Is(c, l.SwitchLabels) && !Is(c, l.DefaultLabels) {
			out = append(out, c)
		}
	}
	return out
}

// IsLogical reports whether n is a short-circuit && or || expression.
func (l *Language) IsLogical(n *Node) bool {
	return Is(n, l.LogicalAnd) || Is(n, l.LogicalOr)
}

// SameLogical reports whether a and b are the same short-circuit operator.
func (l *Language) SameLogical(a, b *Node) bool {
	return (Is(a, l.LogicalAnd) && Is(b, l.LogicalAnd)) || (Is(a, l.LogicalOr) && Is(b, l.LogicalOr))
}

// Declarations yields every function-like node below root that has a body.
func (l *Language) Declarations(root *Node) []*Node {
	var out []*Node
	for n := range root.Preorder() {
		if l.IsFunctionLike(n) && l.BodyOf(n) != nil {
			out = append(out, n)
		}
	}
	return out
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '`' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
