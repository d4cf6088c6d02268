package goast

import (
	"context"
	goast "go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
)

func loadSrc(t *testing.T, src string) *Package {
	t.Helper()
	pkg, err := LoadSources(context.Background(), []Source{{Path: "a.go", Content: []byte(src)}})
	require.NoError(t, err)
	require.Len(t, pkg.Unit.Files, 1)
	return pkg
}

func find(root *ast.Node, kind ast.Kind, nth int) *ast.Node {
	for n := range root.Preorder() {
		if n.Kind == kind {
			if nth == 0 {
				return n
			}
			nth--
		}
	}
	return nil
}

func TestLower_Fields(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, `package a

func f(x, y int) int {
	if x > 0 && y > 0 {
		return 1
	} else if x < 0 {
		return 2
	} else {
		return 3
	}
}
`)
	root := pkg.Unit.Files[0].Root
	assert.Equal(t, ast.Kind("File"), root.Kind)

	fn := find(root, "FuncDecl", 0)
	require.NotNil(t, fn)
	assert.Equal(t, "f", Go.NameText(fn))
	assert.Equal(t, []string{"x", "y"}, Go.ParamNames(fn))
	assert.NotNil(t, Go.BodyOf(fn))

	ifStmt := find(root, "IfStmt", 0)
	assert.Equal(t, "if", ifStmt.Keyword)
	assert.Equal(t, 4, ifStmt.Span.StartLine)
	assert.Equal(t, 2, ifStmt.Span.StartCol)
	cond := ifStmt.Child("condition")
	assert.True(t, ast.Is(cond, Go.LogicalAnd))
	assert.Equal(t, "x > 0", cond.Child("left").Text())
	assert.NotNil(t, ifStmt.Child("consequence"))

	elseIf := ifStmt.Child("alternative")
	require.NotNil(t, elseIf)
	assert.True(t, Go.IsElseIf(elseIf))
	assert.Equal(t, ast.Kind("BlockStmt"), elseIf.Child("alternative").Kind)

	ret := find(root, "ReturnStmt", 0)
	assert.Equal(t, "1", Go.Returned(ret).Text())
}

func TestSemantic(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, `package a

func callee(p *int) bool { return p == nil }

func caller() {
	var q *int
	q = nil
	_ = callee(q)
	const limit = 10
	_ = limit
}
`)
	root := pkg.Unit.Files[0].Root
	sem := pkg.Semantic

	calleeDecl := find(root, "FuncDecl", 0)
	call := find(root, "CallExpr", 0)
	require.NotNil(t, call)

	got, ok := sem.Callee(call)
	require.True(t, ok)
	assert.Same(t, calleeDecl, got)
	assert.Equal(t, []*ast.Node{call}, sem.CallSites(calleeDecl))
	assert.Equal(t, ast.DeclMethod, sem.DeclarationKind(calleeDecl))

	arg := call.ChildrenOf("argument")[0]
	decl, ok := sem.Declaration(arg)
	require.True(t, ok)
	assert.Equal(t, "q", decl.Text())
	assert.Equal(t, ast.DeclLocal, sem.DeclarationKind(decl))
	values := sem.AssignedValues(decl)
	require.Len(t, values, 1)
	v, ok := sem.ConstantValue(values[0])
	require.True(t, ok)
	assert.Equal(t, ast.Null, v)

	cmp := find(calleeDecl, "BinaryExpr", 0)
	param, ok := sem.Declaration(cmp.Child("left"))
	require.True(t, ok)
	assert.Equal(t, ast.DeclParameter, sem.DeclarationKind(param))

	limit := find(root, "ValueSpec", 1).Child("value")
	v, ok = sem.ConstantValue(limit)
	require.True(t, ok)
	assert.Equal(t, int64(10), v)
}

func TestFlowBuilder(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, `package a

func f(p *int) int {
	if p == nil {
		return 0
	}
	n := 0
	for i := 0; i < *p; i++ {
		n += i
	}
	return n
}
`)
	fn := find(pkg.Unit.Files[0].Root, "FuncDecl", 0)
	g, err := pkg.Flow.Build(context.Background(), fn)
	require.NoError(t, err)

	entry := g.Entry()
	require.NotNil(t, entry)
	require.NotNil(t, entry.Cond)
	assert.Equal(t, "p == nil", entry.Cond.Text())
	require.Len(t, entry.Succs, 2)

	loops := g.LoopBlocks()
	assert.NotEmpty(t, loops)
	assert.False(t, loops[entry.Index])

	var conds []string
	for _, b := range g.Blocks {
		if b.Cond != nil {
			conds = append(conds, b.Cond.Text())
		}
	}
	assert.ElementsMatch(t, []string{"p == nil", "i < *p"}, conds)
}

func TestFlowBuilder_Unsupported(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, "package a\n\nfunc external()\n")
	fn := find(pkg.Unit.Files[0].Root, "FuncDecl", 0)
	_, err := pkg.Flow.Build(context.Background(), fn)
	assert.ErrorIs(t, err, cfg.ErrUnsupported)
}

func TestFlowBuilder_TaggedSwitchHasNoCondition(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, `package a

func f(b bool) int {
	switch b {
	case true:
		return 1
	}
	return 0
}
`)
	fn := find(pkg.Unit.Files[0].Root, "FuncDecl", 0)
	g, err := pkg.Flow.Build(context.Background(), fn)
	require.NoError(t, err)
	for _, b := range g.Blocks {
		assert.Nil(t, b.Cond)
	}
}

func TestMayReturn(t *testing.T) {
	t.Parallel()
	pkg := loadSrc(t, `package a

func f() {
	panic("boom")
}
`)
	call := find(pkg.Unit.Files[0].Root, "CallExpr", 0)
	assert.False(t, pkg.Flow.mayReturn(call.Raw.(*goast.CallExpr)))
	assert.True(t, ast.Is(call.Parent(), Go.Throws))
}
