package goast

import (
	"context"
	goast "go/ast"
	"go/types"

	gocfg "golang.org/x/tools/go/cfg"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
)

// FlowBuilder builds control-flow graphs for function bodies of a package.
type FlowBuilder struct {
	pkg *Package
}

var _ cfg.Builder = (*FlowBuilder)(nil)

// Build converts the go/cfg graph of a FuncDecl or FuncLit body.
func (b *FlowBuilder) Build(ctx context.Context, decl *ast.Node) (*cfg.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var body *goast.BlockStmt
	switch raw := decl.Raw.(type) {
	case *goast.FuncDecl:
		body = raw.Body
	case *goast.FuncLit:
		body = raw.Body
	}
	if body == nil {
		return nil, cfg.ErrUnsupported
	}

	g := gocfg.New(body, b.mayReturn)
	blocks := make([]*cfg.Block, len(g.Blocks))
	for i, blk := range g.Blocks {
		out := &cfg.Block{Index: i, Live: blk.Live}
		for _, n := range blk.Nodes {
			if lowered := b.pkg.index[n]; lowered != nil {
				out.Nodes = append(out.Nodes, lowered)
			}
		}
		blocks[i] = out
	}
	for i, blk := range g.Blocks {
		for _, s := range blk.Succs {
			blocks[i].Succs = append(blocks[i].Succs, blocks[s.Index])
		}
		if len(blk.Succs) == 2 && len(blk.Nodes) > 0 {
			if cond, ok := blk.Nodes[len(blk.Nodes)-1].(goast.Expr); ok && b.isCondition(cond) {
				blocks[i].Cond = b.pkg.index[cond]
			}
		}
	}
	return cfg.New(blocks), nil
}

// isCondition reports whether a block-terminating expression is a boolean
// branch condition rather than a case value or range variable.
func (b *FlowBuilder) isCondition(e goast.Expr) bool {
	tv, ok := b.pkg.Info.Types[e]
	if !ok || !tv.IsValue() {
		return false
	}
	basic, ok := tv.Type.Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsBoolean == 0 {
		return false
	}
	n := b.pkg.index[e]
	if n == nil {
		return false
	}
	switch parent := n.Parent(); {
	case parent == nil:
		return false
	case parent.Kind == "RangeStmt":
		return false
	case parent.Kind == "CaseClause":
		// Case values of a tagged switch are compared, not branched on.
		sw := parent.Parent()
		if sw != nil {
			sw = sw.Parent()
		}
		return sw != nil && sw.Kind == "SwitchStmt" && sw.Child("value") == nil
	}
	return true
}

// mayReturn reports false for calls that never return.
func (b *FlowBuilder) mayReturn(call *goast.CallExpr) bool {
	fun := goast.Unparen(call.Fun)
	for {
		switch e := fun.(type) {
		case *goast.IndexExpr:
			fun = e.X
			continue
		case *goast.IndexListExpr:
			fun = e.X
			continue
		}
		break
	}

	var id *goast.Ident
	switch e := fun.(type) {
	case *goast.Ident:
		id = e
	case *goast.SelectorExpr:
		id = e.Sel
	default:
		return true
	}

	switch obj := b.pkg.Info.Uses[id].(type) {
	case *types.Builtin:
		return obj.Name() != "panic"
	case *types.Func:
		return !noReturn[funcName(obj)]
	case nil:
		// Unresolved: fall back to the spelling.
		return id.Name != "panic"
	}
	return true
}

var noReturn = map[string]bool{
	"log.Fatal":                 true,
	"log.Fatalf":                true,
	"log.Fatalln":               true,
	"log.Panic":                 true,
	"log.Panicf":                true,
	"log.Panicln":               true,
	"(*log.Logger).Fatal":       true,
	"(*log.Logger).Fatalf":      true,
	"(*log.Logger).Fatalln":     true,
	"(*log.Logger).Panic":       true,
	"(*log.Logger).Panicf":      true,
	"(*log.Logger).Panicln":     true,
	"os.Exit":                   true,
	"syscall.Exit":              true,
	"runtime.Goexit":            true,
	"(*testing.common).Fatal":   true,
	"(*testing.common).Fatalf":  true,
	"(*testing.common).FailNow": true,
	"(*testing.common).Skip":    true,
	"(*testing.common).Skipf":   true,
	"(*testing.common).SkipNow": true,
	"(testing.TB).Fatal":        true,
	"(testing.TB).Fatalf":       true,
	"(testing.TB).FailNow":      true,
	"(testing.TB).SkipNow":      true,
}

func funcName(fn *types.Func) string {
	return fn.Origin().FullName()
}
