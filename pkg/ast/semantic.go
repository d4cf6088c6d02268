package ast

// DeclKind classifies what a declaration node declares.
type DeclKind int

const (
	DeclUnknown DeclKind = iota
	DeclParameter
	DeclLocal
	DeclField
	DeclMethod
	DeclProperty
)

func (k DeclKind) String() string {
	switch k {
	case DeclParameter:
		return "parameter"
	case DeclLocal:
		return "local"
	case DeclField:
		return "field"
	case DeclMethod:
		return "method"
	case DeclProperty:
		return "property"
	default:
		return "unknown"
	}
}

type nullValue struct{}

func (nullValue) String() string { return "null" }

// Null is the constant value of null/nil literals.
var Null any = nullValue{}

// Semantic resolves symbols for the nodes of one unit.
//
// Variables, parameters and fields are declared by their defining name
// node; methods, functions and properties by their declaration node. Every
// method answers (zero, false) when it cannot resolve, which callers treat
// as "no further findings".
type Semantic interface {
	// Declaration resolves a reference (identifier, member access, method
	// group) to the node declaring it.
	Declaration(ref *Node) (*Node, bool)

	// DeclarationKind classifies a node returned by Declaration.
	DeclarationKind(decl *Node) DeclKind

	// Callee resolves an invocation to the declaration of the invoked method.
	Callee(call *Node) (*Node, bool)

	// CallSites returns every invocation of a method declaration within the unit.
	CallSites(decl *Node) []*Node

	// AssignedValues returns the initializer and every assigned value of a variable.
	AssignedValues(decl *Node) []*Node

	// ConstantValue evaluates a compile-time constant: bool, int64, string or Null.
	ConstantValue(expr *Node) (any, bool)
}

// NoSemantic resolves nothing.
type NoSemantic struct{}

func (NoSemantic) Declaration(*Node) (*Node, bool) { return nil, false }
func (NoSemantic) DeclarationKind(*Node) DeclKind  { return DeclUnknown }
func (NoSemantic) Callee(*Node) (*Node, bool)      { return nil, false }
func (NoSemantic) CallSites(*Node) []*Node         { return nil }
func (NoSemantic) AssignedValues(*Node) []*Node    { return nil }
func (NoSemantic) ConstantValue(*Node) (any, bool) { return nil, false }

var _ Semantic = NoSemantic{}
