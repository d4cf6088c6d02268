package treesitter

import (
	"strings"

	"github.com/panbanda/vigil/pkg/ast"
)

var javaHostnameSetters = map[string]bool{
	"setHostnameVerifier":        true,
	"setDefaultHostnameVerifier": true,
	"setSSLHostnameVerifier":     true,
}

// Java is the role table for tree-sitter-java.
var Java = &ast.Language{
	ID: ast.LangJava,

	Functions: ast.Kinds("method_declaration", "constructor_declaration", "compact_constructor_declaration"),
	TypeDecls: ast.Kinds("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
	Lambdas:   ast.Kinds("lambda_expression"),

	Loops:          ast.Kinds("for_statement", "enhanced_for_statement", "while_statement", "do_statement"),
	Ifs:            ast.Kinds("if_statement"),
	Switches:       ast.Kinds("switch_statement", "switch_expression"),
	SwitchSections: ast.Kinds("switch_block_statement_group", "switch_rule"),
	SwitchLabels:   ast.Kinds("switch_label"),
	DefaultLabels: ast.MatcherFunc(func(n *ast.Node) bool {
		return n.Kind == "switch_label" && n.Keyword == "default"
	}),
	Ternaries: ast.Kinds("ternary_expression"),
	Tries:     ast.Kinds("try_statement", "try_with_resources_statement"),
	Catches:   ast.Kinds("catch_clause"),

	Returns:   ast.Kinds("return_statement"),
	Throws:    ast.Kinds("throw_statement"),
	Breaks:    ast.Kinds("break_statement"),
	Continues: ast.Kinds("continue_statement"),

	LogicalAnd:    ast.Tokens("binary_expression", "&&"),
	LogicalOr:     ast.Tokens("binary_expression", "||"),
	Parenthesized: ast.Kinds("parenthesized_expression"),

	Statements:      statementMatcher("local_variable_declaration"),
	Blocks:          ast.Kinds("block"),
	Identifiers:     ast.Kinds("identifier"),
	StringLiterals:  ast.Kinds("string_literal"),
	Invocations:     ast.Kinds("method_invocation"),
	ObjectCreations: ast.Kinds("object_creation_expression"),
	MemberAccesses:  ast.Kinds("field_access"),
	Parameters:      ast.Kinds("formal_parameter", "spread_parameter"),
	Variables:       ast.Kinds("variable_declarator"),
	Assignments:     ast.Kinds("assignment_expression"),
	Trivia:          ast.Kinds("line_comment", "block_comment", "comment"),
	NonCode:         ast.Kinds("annotation", "marker_annotation"),

	Accept: true,

	StringValue: func(lit *ast.Node) string {
		text := lit.Text()
		if strings.HasPrefix(text, `"""`) && strings.HasSuffix(text, `"""`) && len(text) >= 6 {
			return strings.TrimSpace(text[3 : len(text)-3])
		}
		return strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`)
	},
	CalleeName: func(call *ast.Node) string {
		return call.Child("name").Text()
	},
	MethodGroups:            methodGroups,
	CertificateSinks:        javaCertificateSink,
	DangerousMember:         javaDangerousMember,
	AnonymousImplementation: javaAnonymousImplementation,
}

func javaCertificateSink(n *ast.Node) (*ast.Node, bool) {
	if n.Kind != "method_invocation" || !javaHostnameSetters[n.Child("name").Text()] {
		return nil, false
	}
	list := n.Child("arguments")
	if list == nil {
		return nil, false
	}
	for i := len(list.Children) - 1; i >= 0; i-- {
		if arg := list.Children[i]; !strings.HasSuffix(string(arg.Kind), "comment") {
			return arg, true
		}
	}
	return nil, false
}

func javaDangerousMember(n *ast.Node) bool {
	switch n.Kind {
	case "field_access":
		field := n.Child("field").Text()
		object := n.Child("object").Text()
		return field == "ALLOW_ALL_HOSTNAME_VERIFIER" ||
			(field == "INSTANCE" && strings.HasSuffix(object, "NoopHostnameVerifier"))
	case "object_creation_expression":
		typ := n.Child("type").Text()
		return typ == "NoopHostnameVerifier" || typ == "AllowAllHostnameVerifier"
	}
	return false
}

// javaAnonymousImplementation returns verify() of `new HostnameVerifier() { ... }`.
func javaAnonymousImplementation(n *ast.Node) *ast.Node {
	if n.Kind != "object_creation_expression" {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind != "class_body" {
			continue
		}
		for _, member := range c.Children {
			if member.Kind == "method_declaration" && member.Child("name").Text() == "verify" {
				return member
			}
		}
	}
	return nil
}
