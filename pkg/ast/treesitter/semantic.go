package treesitter

import (
	"strconv"
	"strings"

	"github.com/panbanda/vigil/pkg/ast"
)

// Semantic resolves names lexically within one file. It knows parameters,
// locals, foreach variables, local functions and the members of the
// enclosing type; anything else (imports, base types, other files) is
// reported as unresolved.
type Semantic struct {
	lang *ast.Language
	unit *ast.Unit

	calls map[uint32][]*ast.Node
}

// NewSemantic creates a resolver over the unit.
func NewSemantic(lang *ast.Language, unit *ast.Unit) *Semantic {
	return &Semantic{lang: lang, unit: unit}
}

var _ ast.Semantic = (*Semantic)(nil)

func (s *Semantic) Declaration(ref *ast.Node) (*ast.Node, bool) {
	if ref == nil {
		return nil, false
	}
	switch {
	case ref.Kind == "generic_name":
		return s.resolve(ref, simpleName(ref))
	case ast.Is(ref, s.lang.MemberAccesses):
		if !isThis(receiver(ref)) {
			return nil, false
		}
		return s.member(ref, memberName(ref))
	case ast.Is(ref, s.lang.Identifiers):
		if decl, ok := s.definition(ref); ok {
			return decl, true
		}
		return s.resolve(ref, ref.Text())
	}
	return nil, false
}

func (s *Semantic) DeclarationKind(decl *ast.Node) ast.DeclKind {
	switch {
	case decl == nil:
		return ast.DeclUnknown
	case ast.Is(decl, s.lang.Functions), ast.Is(decl, s.lang.LocalFunctions):
		return ast.DeclMethod
	case decl.Kind == "property_declaration":
		return ast.DeclProperty
	}
	parent := decl.Parent()
	switch {
	case parent == nil:
		return ast.DeclUnknown
	case ast.Is(parent, s.lang.Parameters), ast.Is(parent, s.lang.Lambdas), parent.Kind == "inferred_parameters":
		return ast.DeclParameter
	case ast.Is(parent, s.lang.Variables):
		for a := range parent.Ancestors() {
			if a.Kind == "field_declaration" {
				return ast.DeclField
			}
			if s.lang.IsFunctionLike(a) {
				break
			}
		}
		return ast.DeclLocal
	case ast.Is(parent, s.lang.Loops), parent.Kind == "catch_declaration", parent.Kind == "catch_formal_parameter":
		return ast.DeclLocal
	}
	return ast.DeclUnknown
}

func (s *Semantic) Callee(call *ast.Node) (*ast.Node, bool) {
	if !ast.Is(call, s.lang.Invocations) {
		return nil, false
	}
	var (
		name   string
		anchor = call
		member bool
	)
	if fn := call.Child("function"); fn != nil {
		switch {
		case ast.Is(fn, s.lang.MemberAccesses):
			if !isThis(receiver(fn)) {
				return nil, false
			}
			name, member = memberName(fn), true
		case ast.Is(fn, s.lang.Identifiers), fn.Kind == "generic_name":
			name = simpleName(fn)
		default:
			return nil, false
		}
	} else {
		obj := call.Child("object")
		if obj != nil && !isThis(obj) {
			return nil, false
		}
		name, member = call.Child("name").Text(), obj != nil
	}
	if name == "" {
		return nil, false
	}

	argc := len(s.lang.Args(call))
	var candidates []*ast.Node
	if !member {
		for a := range anchor.Ancestors() {
			if ast.Is(a, s.lang.TypeDecls) {
				break
			}
			if ast.Is(a, s.lang.Blocks) {
				for _, c := range a.Children {
					if ast.Is(c, s.lang.LocalFunctions) && s.lang.NameText(c) == name {
						candidates = append(candidates, c)
					}
				}
			}
		}
	}
	if len(candidates) == 0 {
		if typ := ast.Enclosing(call, s.lang.TypeDecls); typ != nil {
			candidates = s.members(typ, name)
		}
	}

	var match *ast.Node
	for _, c := range candidates {
		if !ast.Is(c, s.lang.Functions) && !ast.Is(c, s.lang.LocalFunctions) {
			continue
		}
		if len(s.lang.ParamNames(c)) != argc {
			continue
		}
		if match != nil {
			return nil, false
		}
		match = c
	}
	return match, match != nil
}

func (s *Semantic) CallSites(decl *ast.Node) []*ast.Node {
	if s.calls == nil {
		s.calls = make(map[uint32][]*ast.Node)
		for _, f := range s.unit.Files {
			for n := range f.Root.Preorder() {
				if callee, ok := s.Callee(n); ok {
					s.calls[callee.ID()] = append(s.calls[callee.ID()], n)
				}
			}
		}
	}
	return s.calls[decl.ID()]
}

func (s *Semantic) AssignedValues(decl *ast.Node) []*ast.Node {
	if decl == nil {
		return nil
	}
	var values []*ast.Node
	if parent := decl.Parent(); ast.Is(parent, s.lang.Variables) {
		if init := initializer(parent, decl); init != nil {
			values = append(values, init)
		}
	}

	scope := ast.Enclosing(decl, ast.MatcherFunc(s.lang.IsFunctionLike))
	if scope == nil {
		scope = ast.Enclosing(decl, s.lang.TypeDecls)
	}
	if scope == nil {
		return values
	}
	for n := range scope.Preorder() {
		if !ast.Is(n, s.lang.Assignments) || (n.Token != "" && n.Token != "=") {
			continue
		}
		target, ok := s.Declaration(n.Child("left"))
		if ok && target == decl {
			if right := n.Child("right"); right != nil {
				values = append(values, right)
			}
		}
	}
	return values
}

func (s *Semantic) ConstantValue(expr *ast.Node) (any, bool) {
	expr = ast.Unwrap(expr, s.lang.Parenthesized)
	if expr == nil {
		return nil, false
	}
	text := expr.Text()
	switch {
	case expr.Kind == "boolean_literal", expr.Kind == "true", expr.Kind == "false":
		return text == "true", true
	case expr.Kind == "null_literal":
		return ast.Null, true
	case strings.HasSuffix(string(expr.Kind), "integer_literal"):
		v, err := strconv.ParseInt(strings.TrimRight(strings.ReplaceAll(text, "_", ""), "lLuU"), 0, 64)
		return v, err == nil
	case ast.Is(expr, s.lang.StringLiterals):
		return s.lang.LiteralValue(expr), true
	}
	return nil, false
}

// definition answers for identifiers that name a declaration themselves.
func (s *Semantic) definition(id *ast.Node) (*ast.Node, bool) {
	parent := id.Parent()
	if parent == nil {
		return nil, false
	}
	switch {
	case ast.Is(parent, s.lang.Parameters) && parent.Child("name") == id:
		return id, true
	case ast.Is(parent, s.lang.Variables) && declaratorName(parent) == id:
		return id, true
	case (ast.Is(parent, s.lang.Functions) || ast.Is(parent, s.lang.LocalFunctions) || parent.Kind == "property_declaration") &&
		parent.Child("name") == id:
		return parent, true
	}
	return nil, false
}

func (s *Semantic) resolve(ref *ast.Node, name string) (*ast.Node, bool) {
	for a := range ref.Ancestors() {
		switch {
		case s.lang.IsFunctionLike(a):
			if p := s.parameter(a, name); p != nil {
				return p, true
			}
		case ast.Is(a, s.lang.Loops):
			for _, field := range []string{"left", "name"} {
				if v := a.Child(field); ast.Is(v, s.lang.Identifiers) && v.Text() == name {
					return v, true
				}
			}
			if d := s.local(a, name, ref); d != nil {
				return d, true
			}
		case ast.Is(a, s.lang.Blocks), ast.Is(a, s.lang.SwitchSections):
			if d := s.local(a, name, ref); d != nil {
				return d, true
			}
		case ast.Is(a, s.lang.TypeDecls):
			members := s.members(a, name)
			if len(members) == 1 {
				return members[0], true
			}
			return nil, false
		}
	}
	return nil, false
}

func (s *Semantic) parameter(fn *ast.Node, name string) *ast.Node {
	list := s.lang.Params(fn)
	if list == nil {
		return nil
	}
	if ast.Is(list, s.lang.Identifiers) {
		if list.Text() == name {
			return list
		}
		return nil
	}
	for _, p := range list.Children {
		switch {
		case ast.Is(p, s.lang.Parameters):
			if n := p.Child("name"); n.Text() == name {
				return n
			}
		case ast.Is(p, s.lang.Identifiers):
			if p.Text() == name {
				return p
			}
		}
	}
	return nil
}

// local finds the last declarator of name in scope that precedes ref,
// without entering nested blocks or functions.
func (s *Semantic) local(scope *ast.Node, name string, ref *ast.Node) *ast.Node {
	var found *ast.Node
	ast.Inspect(scope, func(n *ast.Node) bool {
		if n == scope {
			return true
		}
		if ast.Is(n, s.lang.LocalFunctions) {
			if s.lang.NameText(n) == name {
				found = n
			}
			return false
		}
		if ast.Is(n, s.lang.Blocks) || s.lang.IsFunctionLike(n) {
			return false
		}
		if ast.Is(n, s.lang.Variables) {
			if id := declaratorName(n); id != nil && id.Text() == name && id.Span.StartByte <= ref.Span.StartByte {
				found = id
			}
		}
		return true
	})
	return found
}

// members returns the declarations named name directly inside a type.
func (s *Semantic) members(typ *ast.Node, name string) []*ast.Node {
	body := typ.Child("body")
	if body == nil {
		return nil
	}
	var out []*ast.Node
	for _, m := range body.Children {
		switch {
		case ast.Is(m, s.lang.Functions), m.Kind == "property_declaration":
			if s.lang.NameText(m) == name {
				out = append(out, m)
			}
		case m.Kind == "field_declaration":
			for n := range m.Preorder() {
				if ast.Is(n, s.lang.Variables) {
					if id := declaratorName(n); id.Text() == name {
						out = append(out, id)
					}
				}
			}
		}
	}
	return out
}

func (s *Semantic) member(ref *ast.Node, name string) (*ast.Node, bool) {
	typ := ast.Enclosing(ref, s.lang.TypeDecls)
	if typ == nil {
		return nil, false
	}
	members := s.members(typ, name)
	if len(members) != 1 {
		return nil, false
	}
	return members[0], true
}

func declaratorName(decl *ast.Node) *ast.Node {
	if n := decl.Child("name"); n != nil {
		return n
	}
	for _, c := range decl.Children {
		if c.Kind == "identifier" {
			return c
		}
	}
	return nil
}

// initializer returns the value a declarator is initialized with.
func initializer(decl, name *ast.Node) *ast.Node {
	if v := decl.Child("value"); v != nil {
		return v
	}
	for _, c := range decl.Children {
		if c.Kind == "equals_value_clause" && len(c.Children) > 0 {
			return c.Children[0]
		}
	}
	if n := len(decl.Children); n > 0 {
		if last := decl.Children[n-1]; last != name && last.Kind != "bracketed_argument_list" {
			return last
		}
	}
	return nil
}

func receiver(access *ast.Node) *ast.Node {
	if n := access.Child("expression"); n != nil {
		return n
	}
	return access.Child("object")
}

func memberName(access *ast.Node) string {
	if n := access.Child("name"); n != nil {
		return simpleName(n)
	}
	return access.Child("field").Text()
}

func isThis(n *ast.Node) bool {
	return n != nil && (n.Kind == "this_expression" || n.Kind == "this" || n.Text() == "this")
}
