package goast

import (
	goast "go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/panbanda/vigil/pkg/ast"
)

// Semantic answers symbol questions from go/types information.
type Semantic struct {
	pkg *Package

	defs    map[token.Pos]*ast.Node
	calls   map[types.Object][]*ast.Node
	assigns map[types.Object][]*ast.Node
}

var _ ast.Semantic = (*Semantic)(nil)

func newSemantic(pkg *Package) *Semantic {
	s := &Semantic{pkg: pkg, defs: make(map[token.Pos]*ast.Node)}
	for id, obj := range pkg.Info.Defs {
		if obj == nil {
			continue
		}
		n, ok := pkg.index[id]
		if !ok {
			continue
		}
		if fn, isFunc := obj.(*types.Func); isFunc {
			if parent := n.Parent(); parent != nil && parent.Kind == "FuncDecl" {
				s.defs[fn.Pos()] = parent
				continue
			}
		}
		s.defs[obj.Pos()] = n
	}
	return s
}

func (s *Semantic) object(ref *ast.Node) types.Object {
	if ref == nil {
		return nil
	}
	var id *goast.Ident
	switch raw := ref.Raw.(type) {
	case *goast.Ident:
		id = raw
	case *goast.SelectorExpr:
		id = raw.Sel
	case *goast.ParenExpr:
		return s.object(s.pkg.index[goast.Unparen(raw)])
	default:
		return nil
	}
	if obj := s.pkg.Info.Uses[id]; obj != nil {
		return obj
	}
	return s.pkg.Info.Defs[id]
}

func (s *Semantic) Declaration(ref *ast.Node) (*ast.Node, bool) {
	obj := s.object(ref)
	if obj == nil || !obj.Pos().IsValid() {
		return nil, false
	}
	n, ok := s.defs[obj.Pos()]
	return n, ok
}

func (s *Semantic) DeclarationKind(decl *ast.Node) ast.DeclKind {
	if decl == nil {
		return ast.DeclUnknown
	}
	if decl.Kind == "FuncDecl" {
		return ast.DeclMethod
	}
	obj := s.object(decl)
	v, ok := obj.(*types.Var)
	if !ok {
		return ast.DeclUnknown
	}
	switch {
	case v.IsField():
		return ast.DeclField
	case isParameter(decl):
		return ast.DeclParameter
	default:
		return ast.DeclLocal
	}
}

func isParameter(ident *ast.Node) bool {
	field := ident.Parent()
	if field == nil || field.Kind != "Field" {
		return false
	}
	list := field.Parent()
	return list != nil && (list.Field == "parameters" || list.Field == "receiver" || list.Field == "result")
}

func (s *Semantic) Callee(call *ast.Node) (*ast.Node, bool) {
	raw, ok := call.Raw.(*goast.CallExpr)
	if !ok {
		return nil, false
	}
	fn, ok := s.object(s.pkg.index[goast.Unparen(raw.Fun)]).(*types.Func)
	if !ok {
		return nil, false
	}
	n, ok := s.defs[fn.Origin().Pos()]
	return n, ok && n.Kind == "FuncDecl"
}

func (s *Semantic) CallSites(decl *ast.Node) []*ast.Node {
	if s.calls == nil {
		s.calls = make(map[types.Object][]*ast.Node)
		for n := range s.pkg.nodes("CallExpr") {
			raw := n.Raw.(*goast.CallExpr)
			if fn, ok := s.object(s.pkg.index[goast.Unparen(raw.Fun)]).(*types.Func); ok {
				s.calls[fn.Origin()] = append(s.calls[fn.Origin()], n)
			}
		}
	}
	fd, ok := decl.Raw.(*goast.FuncDecl)
	if !ok {
		return nil
	}
	return s.calls[s.pkg.Info.Defs[fd.Name]]
}

func (s *Semantic) AssignedValues(decl *ast.Node) []*ast.Node {
	obj := s.object(decl)
	if obj == nil {
		return nil
	}
	if s.assigns == nil {
		s.assigns = make(map[types.Object][]*ast.Node)
		for n := range s.pkg.nodes("ValueSpec") {
			s.pair(n.ChildrenOf("name"), n.ChildrenOf("value"))
		}
		for n := range s.pkg.nodes("AssignStmt") {
			if n.Token == "=" || n.Token == ":=" {
				s.pair(n.ChildrenOf("left"), n.ChildrenOf("right"))
			}
		}
	}
	return s.assigns[obj]
}

func (s *Semantic) pair(lhs, rhs []*ast.Node) {
	if len(lhs) != len(rhs) {
		return
	}
	for i, l := range lhs {
		if obj := s.object(l); obj != nil {
			s.assigns[obj] = append(s.assigns[obj], rhs[i])
		}
	}
}

func (s *Semantic) ConstantValue(expr *ast.Node) (any, bool) {
	if expr == nil {
		return nil, false
	}
	e, ok := expr.Raw.(goast.Expr)
	if !ok {
		return nil, false
	}
	e = goast.Unparen(e)
	tv, ok := s.pkg.Info.Types[e]
	if ok && tv.IsNil() {
		return ast.Null, true
	}
	if ok && tv.Value != nil {
		return fromConstant(tv.Value)
	}
	if id, isIdent := e.(*goast.Ident); isIdent && id.Name == "nil" {
		if _, shadowed := s.pkg.Info.Uses[id].(*types.Var); !shadowed {
			return ast.Null, true
		}
	}
	return nil, false
}

func fromConstant(v constant.Value) (any, bool) {
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v), true
	case constant.String:
		return constant.StringVal(v), true
	case constant.Int:
		if i, exact := constant.Int64Val(v); exact {
			return i, true
		}
	}
	return nil, false
}
