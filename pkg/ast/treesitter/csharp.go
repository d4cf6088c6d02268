package treesitter

import (
	"strings"

	"github.com/panbanda/vigil/pkg/ast"
)

var csharpCertificateCallbacks = map[string]bool{
	"ServerCertificateValidationCallback":       true,
	"ServerCertificateCustomValidationCallback": true,
	"RemoteCertificateValidationCallback":       true,
}

// CSharp is the role table for tree-sitter-c-sharp.
var CSharp = &ast.Language{
	ID: ast.LangCSharp,

	Functions: ast.Kinds("method_declaration", "constructor_declaration", "destructor_declaration",
		"operator_declaration", "conversion_operator_declaration"),
	Accessors:      ast.Kinds("accessor_declaration"),
	TypeDecls:      ast.Kinds("class_declaration", "struct_declaration", "interface_declaration", "record_declaration", "record_struct_declaration"),
	Lambdas:        ast.Kinds("lambda_expression", "anonymous_method_expression"),
	LocalFunctions: ast.Kinds("local_function_statement"),

	Loops:          ast.Kinds("for_statement", "for_each_statement", "foreach_statement", "while_statement", "do_statement"),
	Ifs:            ast.Kinds("if_statement"),
	Switches:       ast.Kinds("switch_statement"),
	SwitchSections: ast.Kinds("switch_section"),
	SwitchLabels:   ast.Kinds("case_switch_label", "case_pattern_switch_label", "default_switch_label"),
	DefaultLabels:  ast.Kinds("default_switch_label"),
	Ternaries:      ast.Kinds("conditional_expression"),
	Tries:          ast.Kinds("try_statement"),
	Catches:        ast.Kinds("catch_clause"),

	Returns:   ast.Kinds("return_statement"),
	Throws:    ast.Kinds("throw_statement", "throw_expression"),
	Breaks:    ast.Kinds("break_statement"),
	Continues: ast.Kinds("continue_statement"),
	Gotos:     ast.Kinds("goto_statement"),

	LogicalAnd:    ast.Tokens("binary_expression", "&&"),
	LogicalOr:     ast.Tokens("binary_expression", "||"),
	Parenthesized: ast.Kinds("parenthesized_expression"),

	Statements:      statementMatcher("local_declaration_statement"),
	Blocks:          ast.Kinds("block"),
	Identifiers:     ast.Kinds("identifier"),
	StringLiterals:  ast.Kinds("string_literal", "verbatim_string_literal", "raw_string_literal"),
	Invocations:     ast.Kinds("invocation_expression"),
	ObjectCreations: ast.Kinds("object_creation_expression", "implicit_object_creation_expression"),
	MemberAccesses:  ast.Kinds("member_access_expression"),
	Parameters:      ast.Kinds("parameter"),
	Variables:       ast.Kinds("variable_declarator"),
	Assignments:     ast.Kinds("assignment_expression"),
	Trivia:          ast.Kinds("comment"),
	NonCode:         ast.Kinds("attribute_list", "attribute"),

	Accept: true,

	Body:             csharpBody,
	StringValue:      csharpStringValue,
	CalleeName:       csharpCalleeName,
	Arguments:        csharpArguments,
	MethodGroups:     methodGroups,
	CertificateSinks: csharpCertificateSink,
	DangerousMember: func(n *ast.Node) bool {
		return n.Kind == "member_access_expression" &&
			n.Child("name").Text() == "DangerousAcceptAnyServerCertificateValidator"
	},
}

func csharpBody(decl *ast.Node) *ast.Node {
	if body := decl.Child("body"); body != nil {
		return body
	}
	for _, c := range decl.Children {
		if c.Kind == "block" || c.Kind == "arrow_expression_clause" {
			return c
		}
	}
	return nil
}

func csharpStringValue(lit *ast.Node) string {
	text := lit.Text()
	switch {
	case strings.HasPrefix(text, `"""`) && strings.HasSuffix(text, `"""`) && len(text) >= 6:
		return strings.TrimSpace(text[3 : len(text)-3])
	case strings.HasPrefix(text, `@"`):
		return strings.TrimSuffix(text[2:], `"`)
	}
	return strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`)
}

func csharpCalleeName(call *ast.Node) string {
	fn := call.Child("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind {
	case "member_access_expression":
		return simpleName(fn.Child("name"))
	default:
		return simpleName(fn)
	}
}

// simpleName strips generic arguments from a name node.
func simpleName(n *ast.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == "generic_name" {
		for _, c := range n.Children {
			if c.Kind == "identifier" {
				return c.Text()
			}
		}
	}
	return n.Text()
}

func csharpArguments(call *ast.Node) []*ast.Node {
	list := call.Child("arguments")
	if list == nil {
		return nil
	}
	var args []*ast.Node
	for _, arg := range list.Children {
		if arg.Kind != "argument" || len(arg.Children) == 0 {
			continue
		}
		args = append(args, arg.Children[len(arg.Children)-1])
	}
	return args
}

func csharpCertificateSink(n *ast.Node) (*ast.Node, bool) {
	switch n.Kind {
	case "assignment_expression":
		left := n.Child("left")
		name := left.Text()
		if left != nil && left.Kind == "member_access_expression" {
			name = left.Child("name").Text()
		}
		if csharpCertificateCallbacks[name] {
			return n.Child("right"), n.Child("right") != nil
		}
	case "object_creation_expression":
		typ := n.Child("type").Text()
		if typ == "SslStream" || strings.HasSuffix(typ, ".SslStream") {
			if args := csharpArguments(n); len(args) >= 3 {
				return args[2], true
			}
		}
	}
	return nil, false
}

func statementMatcher(extra ...ast.Kind) ast.Matcher {
	kinds := ast.Kinds(extra...)
	return ast.MatcherFunc(func(n *ast.Node) bool {
		return kinds[n.Kind] || n.Kind == "block" || strings.HasSuffix(string(n.Kind), "_statement")
	})
}

// methodGroups groups the methods declared directly in each type.
func methodGroups(root *ast.Node) [][]*ast.Node {
	lang := root.File().Language
	var groups [][]*ast.Node
	for n := range root.Preorder() {
		if !ast.Is(n, lang.TypeDecls) {
			continue
		}
		body := n.Child("body")
		if body == nil {
			continue
		}
		var methods []*ast.Node
		for _, member := range body.Children {
			if ast.Is(member, lang.Functions) {
				methods = append(methods, member)
			}
		}
		if len(methods) > 1 {
			groups = append(groups, methods)
		}
	}
	return groups
}
