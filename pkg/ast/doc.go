// Package ast is the syntax and semantic facade shared by every rule engine.
//
// Backends lower their native trees into a materialized [Node] tree. The
// tree-sitter backend does this for C# and Java, and the go/ast backend does it
// for Go. A [Language] descriptor tells the engines which node kinds play
// which role (loop, conditional, lambda, ...) in that grammar, so the same
// algorithm runs unchanged against different grammars. A [Semantic]
// implementation answers symbol questions: where a reference is declared,
// which method an invocation calls, and which values flow into a variable.
//
// Usage:
//
//	unit := ast.NewUnit()
//	file := unit.NewFile("Program.cs", lang, src)
//	root := file.NewNode("compilation_unit", span)
//	file.SetRoot(root)
//
//	for n := range root.Preorder() {
//	    if ast.Is(n, lang.Loops) {
//	        fmt.Println(n.Span)
//	    }
//	}
package ast
