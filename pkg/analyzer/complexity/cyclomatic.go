package complexity

import "github.com/panbanda/vigil/pkg/ast"

// Cyclomatic returns the cyclomatic complexity of decl and the nodes adding
// to it: one for the entry, then one per branch, loop, conditional operator
// and non-default case label. Lambdas count towards the enclosing function.
func Cyclomatic(lang *ast.Language, decl *ast.Node) (int, []*ast.Node) {
	body := lang.BodyOf(decl)
	if body == nil {
		return 0, nil
	}
	var points []*ast.Node
	ast.Inspect(body, func(n *ast.Node) bool {
		switch {
		case n != body && (ast.Is(n, lang.Functions) || ast.Is(n, lang.Accessors) || ast.Is(n, lang.TypeDecls)):
			return false
		case ast.Is(n, lang.Ifs), ast.Is(n, lang.Loops), ast.Is(n, lang.Ternaries), lang.IsLogical(n):
			points = append(points, n)
		case ast.Is(n, lang.SwitchSections):
			points = append(points, lang.Labels(n)...)
		}
		return true
	})
	return 1 + len(points), points
}
