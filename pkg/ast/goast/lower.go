package goast

import (
	goast "go/ast"
	"go/token"
	"reflect"

	"github.com/panbanda/vigil/pkg/ast"
)

type lowerer struct {
	fset  *token.FileSet
	file  *ast.File
	index map[goast.Node]*ast.Node
}

// lower converts a parsed Go file, recording every go/ast node in index.
func lower(fset *token.FileSet, file *ast.File, f *goast.File, index map[goast.Node]*ast.Node) *ast.Node {
	l := &lowerer{fset: fset, file: file, index: index}

	var stack []*ast.Node
	var root *ast.Node
	goast.Inspect(f, func(n goast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return true
		}
		switch n.(type) {
		case *goast.CommentGroup, *goast.Comment:
			return false
		}
		out := l.node(n)
		if len(stack) == 0 {
			root = out
		} else {
			parent := stack[len(stack)-1]
			parent.Add(fieldOf(parent.Raw.(goast.Node), n), out)
		}
		stack = append(stack, out)
		return true
	})
	return root
}

func (l *lowerer) node(n goast.Node) *ast.Node {
	out := l.file.NewNode(kindOf(n), l.span(n))
	out.Raw = n
	l.index[n] = out

	switch n := n.(type) {
	case *goast.BinaryExpr:
		out.Token = n.Op.String()
	case *goast.UnaryExpr:
		out.Token = n.Op.String()
	case *goast.AssignStmt:
		out.Token = n.Tok.String()
	case *goast.IncDecStmt:
		out.Token = n.Tok.String()
	case *goast.BasicLit:
		out.Token = n.Kind.String()
	case *goast.BranchStmt:
		out.Token = n.Tok.String()
		out.Keyword = out.Token
	case *goast.IfStmt:
		out.Keyword = "if"
	case *goast.ForStmt, *goast.RangeStmt:
		out.Keyword = "for"
	case *goast.SwitchStmt, *goast.TypeSwitchStmt:
		out.Keyword = "switch"
	case *goast.SelectStmt:
		out.Keyword = "select"
	case *goast.ReturnStmt:
		out.Keyword = "return"
	case *goast.GoStmt:
		out.Keyword = "go"
	case *goast.DeferStmt:
		out.Keyword = "defer"
	case *goast.FuncLit:
		out.Keyword = "func"
	case *goast.CaseClause:
		out.Keyword = caseKeyword(n.List == nil)
	case *goast.CommClause:
		out.Keyword = caseKeyword(n.Comm == nil)
	}
	return out
}

func caseKeyword(isDefault bool) string {
	if isDefault {
		return "default"
	}
	return "case"
}

func (l *lowerer) span(n goast.Node) ast.Span {
	start, end := l.fset.Position(n.Pos()), l.fset.Position(n.End())
	return ast.Span{
		File:      start.Filename,
		StartLine: start.Line,
		StartCol:  start.Column,
		EndLine:   end.Line,
		EndCol:    end.Column,
		StartByte: start.Offset,
		EndByte:   end.Offset,
	}
}

// kindOf names a node after its go/ast type: *ast.IfStmt becomes "IfStmt".
func kindOf(n goast.Node) ast.Kind {
	return ast.Kind(reflect.TypeOf(n).Elem().Name())
}

// fieldOf maps a child to the grammar field names shared with the
// tree-sitter backend (condition, consequence, body, left, ...).
func fieldOf(parent, child goast.Node) string {
	switch p := parent.(type) {
	case *goast.FuncDecl:
		switch child {
		case p.Recv:
			return "receiver"
		case p.Name:
			return "name"
		case p.Type:
			return "type"
		case p.Body:
			return "body"
		}
	case *goast.FuncLit:
		switch child {
		case p.Type:
			return "type"
		case p.Body:
			return "body"
		}
	case *goast.FuncType:
		switch child {
		case p.TypeParams:
			return "type_parameters"
		case p.Params:
			return "parameters"
		case p.Results:
			return "result"
		}
	case *goast.Field:
		switch child {
		case p.Type:
			return "type"
		case p.Tag:
			return "tag"
		}
		return "name"
	case *goast.IfStmt:
		switch child {
		case p.Init:
			return "initializer"
		case p.Cond:
			return "condition"
		case p.Body:
			return "consequence"
		case p.Else:
			return "alternative"
		}
	case *goast.ForStmt:
		switch child {
		case p.Init:
			return "initializer"
		case p.Cond:
			return "condition"
		case p.Post:
			return "update"
		case p.Body:
			return "body"
		}
	case *goast.RangeStmt:
		switch child {
		case p.Key:
			return "key"
		case p.Value:
			return "value"
		case p.X:
			return "right"
		case p.Body:
			return "body"
		}
	case *goast.SwitchStmt:
		switch child {
		case p.Init:
			return "initializer"
		case p.Tag:
			return "value"
		case p.Body:
			return "body"
		}
	case *goast.TypeSwitchStmt:
		switch child {
		case p.Init:
			return "initializer"
		case p.Assign:
			return "value"
		case p.Body:
			return "body"
		}
	case *goast.SelectStmt:
		return "body"
	case *goast.CaseClause:
		for _, e := range p.List {
			if child == e {
				return "value"
			}
		}
	case *goast.CommClause:
		if child == p.Comm {
			return "value"
		}
	case *goast.CallExpr:
		if child == p.Fun {
			return "function"
		}
		return "argument"
	case *goast.SelectorExpr:
		if child == p.Sel {
			return "field"
		}
		return "operand"
	case *goast.BinaryExpr:
		if child == p.X {
			return "left"
		}
		return "right"
	case *goast.AssignStmt:
		for _, e := range p.Lhs {
			if child == e {
				return "left"
			}
		}
		return "right"
	case *goast.ValueSpec:
		switch child {
		case p.Type:
			return "type"
		}
		for _, name := range p.Names {
			if child == name {
				return "name"
			}
		}
		return "value"
	case *goast.TypeSpec:
		switch child {
		case p.Name:
			return "name"
		case p.TypeParams:
			return "type_parameters"
		case p.Type:
			return "type"
		}
	case *goast.KeyValueExpr:
		if child == p.Key {
			return "key"
		}
		return "value"
	case *goast.CompositeLit:
		if child == p.Type {
			return "type"
		}
	case *goast.UnaryExpr, *goast.StarExpr, *goast.IncDecStmt:
		return "operand"
	case *goast.IndexExpr:
		if child == p.Index {
			return "index"
		}
		return "operand"
	case *goast.ParenExpr, *goast.ExprStmt:
		return "expression"
	case *goast.LabeledStmt:
		if child == p.Label {
			return "label"
		}
		return "body"
	case *goast.BranchStmt:
		return "label"
	case *goast.GoStmt, *goast.DeferStmt:
		return "call"
	case *goast.DeclStmt:
		return "declaration"
	case *goast.File:
		if child == p.Name {
			return "name"
		}
	case *goast.ImportSpec:
		switch child {
		case p.Name:
			return "name"
		case p.Path:
			return "path"
		}
	}
	return ""
}
