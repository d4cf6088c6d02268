package goast

import (
	"strconv"
	"strings"

	"github.com/panbanda/vigil/pkg/ast"
)

var certificateCallbacks = map[string]bool{
	"VerifyPeerCertificate": true,
	"VerifyConnection":      true,
}

// Go is the role table for lowered go/ast trees. Go has no ternary, try or
// catch, so those roles stay nil.
var Go = &ast.Language{
	ID: ast.LangGo,

	Functions: ast.Kinds("FuncDecl"),
	Lambdas:   ast.Kinds("FuncLit"),

	Loops:          ast.Kinds("ForStmt", "RangeStmt"),
	Ifs:            ast.Kinds("IfStmt"),
	Switches:       ast.Kinds("SwitchStmt", "TypeSwitchStmt", "SelectStmt"),
	SwitchSections: ast.Kinds("CaseClause", "CommClause"),
	DefaultLabels: ast.MatcherFunc(func(n *ast.Node) bool {
		return (n.Kind == "CaseClause" || n.Kind == "CommClause") && n.Keyword == "default"
	}),

	Returns:   ast.Kinds("ReturnStmt"),
	Throws:    ast.MatcherFunc(isPanic),
	Breaks:    ast.Tokens("BranchStmt", "break"),
	Continues: ast.Tokens("BranchStmt", "continue"),
	Gotos: ast.MatcherFunc(func(n *ast.Node) bool {
		return n.Kind == "BranchStmt" && (n.Token == "goto" || (n.Child("label") != nil && n.Token != "fallthrough"))
	}),

	LogicalAnd:    ast.Tokens("BinaryExpr", "&&"),
	LogicalOr:     ast.Tokens("BinaryExpr", "||"),
	Parenthesized: ast.Kinds("ParenExpr"),

	Statements: ast.MatcherFunc(func(n *ast.Node) bool {
		return strings.HasSuffix(string(n.Kind), "Stmt")
	}),
	Blocks:          ast.Kinds("BlockStmt"),
	Identifiers:     ast.Kinds("Ident"),
	StringLiterals:  ast.Tokens("BasicLit", "STRING"),
	Invocations:     ast.Kinds("CallExpr"),
	ObjectCreations: ast.Kinds("CompositeLit"),
	MemberAccesses:  ast.Kinds("SelectorExpr"),
	Parameters:      ast.Kinds("Field"),
	Variables:       ast.Kinds("ValueSpec"),
	Assignments:     ast.Kinds("AssignStmt"),
	NonCode: ast.AnyOf(ast.Kinds("ImportSpec"), ast.MatcherFunc(func(n *ast.Node) bool {
		return n.Field == "tag"
	})),

	Accept: ast.Null,

	ParameterList: func(decl *ast.Node) *ast.Node {
		return decl.Child("type").Child("parameters")
	},
	TypeParameters: func(decl *ast.Node) *ast.Node {
		return decl.Child("type").Child("type_parameters")
	},
	StringValue: func(lit *ast.Node) string {
		v, err := strconv.Unquote(lit.Text())
		if err != nil {
			return strings.Trim(lit.Text(), "\"`")
		}
		return v
	},
	CalleeName: func(call *ast.Node) string {
		fn := call.Child("function")
		if fn != nil && fn.Kind == "SelectorExpr" {
			return fn.Child("field").Text()
		}
		return fn.Text()
	},
	Arguments: func(call *ast.Node) []*ast.Node {
		return call.ChildrenOf("argument")
	},
	MethodGroups:     methodGroups,
	CertificateSinks: certificateSink,
	DangerousMember:  func(*ast.Node) bool { return false },
	Dereference:      dereference,
	Division:         division,
}

func isPanic(n *ast.Node) bool {
	if n.Kind != "ExprStmt" {
		return false
	}
	call := n.Child("expression")
	return call != nil && call.Kind == "CallExpr" && call.Child("function").Text() == "panic"
}

// methodGroups groups methods by receiver type; plain functions of a file form one group.
func methodGroups(root *ast.Node) [][]*ast.Node {
	byRecv := map[string][]*ast.Node{}
	var order []string
	for _, decl := range root.Children {
		if decl.Kind != "FuncDecl" || decl.Child("body") == nil {
			continue
		}
		key := receiverType(decl)
		if _, ok := byRecv[key]; !ok {
			order = append(order, key)
		}
		byRecv[key] = append(byRecv[key], decl)
	}
	var groups [][]*ast.Node
	for _, key := range order {
		if len(byRecv[key]) > 1 {
			groups = append(groups, byRecv[key])
		}
	}
	return groups
}

func receiverType(decl *ast.Node) string {
	recv := decl.Child("receiver")
	if recv == nil || len(recv.Children) == 0 {
		return ""
	}
	typ := recv.Children[0].Child("type")
	for typ != nil && (typ.Kind == "StarExpr" || typ.Kind == "IndexExpr" || typ.Kind == "IndexListExpr") {
		typ = typ.Child("operand")
		if typ == nil {
			return ""
		}
	}
	return typ.Text()
}

func certificateSink(n *ast.Node) (*ast.Node, bool) {
	switch n.Kind {
	case "KeyValueExpr":
		if key := n.Child("key"); key != nil && certificateCallbacks[key.Text()] {
			v := n.Child("value")
			return v, v != nil
		}
	case "AssignStmt":
		left, right := n.ChildrenOf("left"), n.ChildrenOf("right")
		if len(left) != len(right) {
			return nil, false
		}
		for i, l := range left {
			if l.Kind == "SelectorExpr" && certificateCallbacks[l.Child("field").Text()] {
				return right[i], true
			}
		}
	}
	return nil, false
}

// dereference returns x for *x and x.f in expression position.
func dereference(n *ast.Node) *ast.Node {
	switch n.Kind {
	case "StarExpr":
		if inTypePosition(n) {
			return nil
		}
	case "SelectorExpr":
		if n.Field == "function" {
			return nil
		}
	default:
		return nil
	}
	if x := n.Child("operand"); x != nil && x.Kind == "Ident" {
		return x
	}
	return nil
}

func inTypePosition(n *ast.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Field == "type" || cur.Field == "result" {
			return true
		}
		switch cur.Kind {
		case "Field", "FieldList", "FuncType", "ArrayType", "MapType", "ChanType", "TypeSpec":
			return true
		case "ExprStmt", "AssignStmt", "ReturnStmt", "IfStmt", "CallExpr", "BlockStmt":
			return false
		}
	}
	return false
}

func division(n *ast.Node) *ast.Node {
	switch n.Kind {
	case "BinaryExpr":
		if n.Token == "/" || n.Token == "%" {
			return n.Child("right")
		}
	case "AssignStmt":
		if n.Token == "/=" || n.Token == "%=" {
			return n.Child("right")
		}
	}
	return nil
}
