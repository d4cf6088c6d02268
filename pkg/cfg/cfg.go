// Package cfg is a language-neutral control-flow graph over facade nodes.
package cfg

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/panbanda/vigil/pkg/ast"
)

// ErrUnsupported is returned by a Builder that cannot build a graph for a
// declaration. Callers skip the declaration silently.
var ErrUnsupported = errors.New("control flow graph unavailable")

// Builder builds the graph of one declaration body.
type Builder interface {
	Build(ctx context.Context, decl *ast.Node) (*Graph, error)
}

// Block is a basic block: nodes executed in order, then a jump to one of Succs.
type Block struct {
	Index int
	Nodes []*ast.Node
	Succs []*Block
	// Cond is the boolean expression deciding the branch: Succs[0] is taken
	// when it is true and Succs[1] when it is false. Nil for other blocks.
	Cond *ast.Node
	Live bool
}

// Graph is the control-flow graph of one body. Blocks[0] is the entry.
type Graph struct {
	Blocks []*Block

	directed  *simple.DirectedGraph
	selfLoops map[int]bool
}

// New indexes blocks into a graph.
func New(blocks []*Block) *Graph {
	g := &Graph{
		Blocks:    blocks,
		directed:  simple.NewDirectedGraph(),
		selfLoops: make(map[int]bool),
	}
	for _, b := range blocks {
		g.directed.AddNode(simple.Node(b.Index))
	}
	// gonum simple graphs reject self edges, so they are tracked separately.
	for _, b := range blocks {
		for _, s := range b.Succs {
			if s.Index == b.Index {
				g.selfLoops[b.Index] = true
				continue
			}
			g.directed.SetEdge(simple.Edge{F: simple.Node(b.Index), T: simple.Node(s.Index)})
		}
	}
	return g
}

// Entry returns the entry block, or nil for an empty graph.
func (g *Graph) Entry() *Block {
	if len(g.Blocks) == 0 {
		return nil
	}
	return g.Blocks[0]
}

// Reachable returns the blocks reachable from the entry, in breadth-first order.
func (g *Graph) Reachable() []*Block {
	entry := g.Entry()
	if entry == nil {
		return nil
	}
	var out []*Block
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			out = append(out, g.Blocks[n.ID()])
		},
	}
	bf.Walk(g.directed, simple.Node(entry.Index), nil)
	return out
}

// LoopBlocks returns the indices of blocks that lie on a cycle.
func (g *Graph) LoopBlocks() map[int]bool {
	loops := make(map[int]bool, len(g.selfLoops))
	for idx := range g.selfLoops {
		loops[idx] = true
	}
	for _, scc := range topo.TarjanSCC(g.directed) {
		if len(scc) < 2 {
			continue
		}
		for _, n := range scc {
			loops[int(n.ID())] = true
		}
	}
	return loops
}
