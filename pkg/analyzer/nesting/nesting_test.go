package nesting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/ast"
)

func chain(depth int) *ast.Node {
	unit := ast.NewUnit()
	f := unit.NewFile("x", &ast.Language{}, nil)
	root := f.NewNode("N", ast.Span{StartLine: 1})
	cur := root
	for i := 2; i <= depth; i++ {
		cur = cur.Add("", f.NewNode("N", ast.Span{StartLine: i}))
	}
	return root
}

func TestTracker_Symmetry(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		depth, max, reports int
	}{
		{depth: 5, max: 2, reports: 1},
		{depth: 3, max: 3, reports: 0},
		{depth: 4, max: 0, reports: 1},
	} {
		var reported []*ast.Node
		tr := &Tracker{Max: tt.max, Report: func(n *ast.Node) { reported = append(reported, n) }}

		var visit func(n *ast.Node)
		visit = func(n *ast.Node) {
			tr.Check(n, func() {
				for _, c := range n.Children {
					visit(c)
				}
			})
		}
		visit(chain(tt.depth))

		assert.Len(t, reported, tt.reports, "depth %d max %d", tt.depth, tt.max)
		if tt.reports > 0 {
			assert.Equal(t, tt.max+1, reported[0].Span.StartLine)
		}
		assert.Equal(t, 0, tr.Depth())
	}
}

func TestTracker_RestoresDepthOnPanic(t *testing.T) {
	t.Parallel()
	tr := &Tracker{Max: 3, Report: func(*ast.Node) {}}
	func() {
		defer func() { _ = recover() }()
		tr.Check(nil, func() { panic("boom") })
	}()
	assert.Equal(t, 0, tr.Depth())
}

func TestRule_CSharp(t *testing.T) {
	t.Parallel()
	prog := testutil.CSharp(t, `class C {
    void M(int x) {
        if (x > 0) {
            for (int i = 0; i < x; i++) {
                if (i > 2) {
                    while (x > 1) {
                        if (x > 3) { x--; }
                        x--;
                    }
                }
            }
        }
    }
}
`)
	diags := testutil.Run(t, New(), prog, nil)
	require.Len(t, diags, 1)
	assert.Equal(t, ID, diags[0].Rule)
	assert.Equal(t, "Refactor this code to not nest more than 3 control flow statements.", diags[0].Message)
	assert.Equal(t, 6, diags[0].Location.Line)
	assert.Equal(t, 21, diags[0].Location.Column)
	assert.Equal(t, 26, diags[0].Location.EndColumn)
}

func TestRule_GoElseIf(t *testing.T) {
	t.Parallel()
	src := `package a

func f(x int) {
	if x > 0 {
	} else if x > 1 {
		for x > 2 {
			switch x {
			case 3:
			}
		}
	}
}
`
	assert.Empty(t, testutil.Run(t, New(), testutil.Go(t, src), nil))

	diags := testutil.Run(t, New(), testutil.Go(t, src), testutil.Config(ID, map[string]any{"max": 2}))
	require.Len(t, diags, 1)
	assert.Equal(t, 7, diags[0].Location.Line)
	assert.Equal(t, 4, diags[0].Location.Column)
}
