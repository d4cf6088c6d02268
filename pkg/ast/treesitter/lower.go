package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/vigil/pkg/ast"
)

// fieldNames are the grammar fields recovered during lowering. Children under
// any other field are kept with an empty Field.
var fieldNames = []string{
	"name", "body", "type", "parameters", "type_parameters", "returns",
	"condition", "consequence", "alternative",
	"initializer", "init", "update", "left", "right", "value",
	"function", "arguments", "expression", "object", "field",
	"operator", "operand", "argument", "declarator", "dimensions",
	"accessors", "key", "label", "resources", "interfaces", "superclass",
}

type childKey struct {
	start, end uint32
	kind       string
}

type lowerer struct {
	file   *ast.File
	source []byte
}

func lower(file *ast.File, root *sitter.Node) *ast.Node {
	l := &lowerer{file: file, source: file.Source}
	return l.node(root)
}

func (l *lowerer) node(n *sitter.Node) *ast.Node {
	out := l.file.NewNode(ast.Kind(n.Type()), l.span(n))
	out.Raw = n

	fields := l.fields(n)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if !c.IsNamed() {
			if i == 0 && isWord(c.Type()) {
				out.Keyword = c.Type()
			}
			continue
		}
		field := fields[keyOf(c)]
		if field == "operator" || c.Type() == "assignment_operator" {
			out.Token = c.Content(l.source)
			continue
		}
		out.Add(field, l.node(c))
	}

	if op := n.ChildByFieldName("operator"); op != nil && !op.IsNamed() {
		out.Token = op.Type()
	}
	return out
}

func (l *lowerer) fields(n *sitter.Node) map[childKey]string {
	if n.NamedChildCount() == 0 {
		return nil
	}
	m := make(map[childKey]string)
	for _, name := range fieldNames {
		c := n.ChildByFieldName(name)
		if c == nil {
			continue
		}
		k := keyOf(c)
		if _, ok := m[k]; !ok {
			m[k] = name
		}
	}
	return m
}

func (l *lowerer) span(n *sitter.Node) ast.Span {
	start, end := n.StartPoint(), n.EndPoint()
	return ast.Span{
		File:      l.file.Path,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
}

func keyOf(n *sitter.Node) childKey {
	return childKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
