package symbolic

import (
	"context"
	"encoding/binary"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
)

const (
	// DefaultMaxSteps bounds the node visits of one exploration.
	DefaultMaxSteps = 10000
	// DefaultMaxLoopVisits bounds how often a block on a cycle is entered.
	DefaultMaxLoopVisits = 2

	cancelEvery = 256
)

// Check observes an exploration. Implementations report through their
// session as a side effect.
type Check interface {
	// PreProcess is called before each node takes effect on the state.
	PreProcess(n *ast.Node, s State)
	// ConditionEvaluated is called for every branch condition reached.
	// known is false when the state cannot decide the condition.
	ConditionEvaluated(cond *ast.Node, value, known bool)
	// ExecutionCompleted is called once. completed is false when the
	// exploration was cut short and saw only part of the paths.
	ExecutionCompleted(completed bool)
}

// Result summarizes one exploration.
type Result struct {
	Steps     int
	Completed bool
}

// Engine explores the paths of one control-flow graph.
type Engine struct {
	Graph         *cfg.Graph
	Session       *Session
	Checks        []Check
	MaxSteps      int
	MaxLoopVisits int
}

// NewEngine creates an engine with default bounds.
func NewEngine(g *cfg.Graph, session *Session, checks []Check) *Engine {
	return &Engine{
		Graph:         g,
		Session:       session,
		Checks:        checks,
		MaxSteps:      DefaultMaxSteps,
		MaxLoopVisits: DefaultMaxLoopVisits,
	}
}

type point struct {
	block *cfg.Block
	state State
}

// Run explores every feasible (block, state) pair once, depth first.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := ctx.Err(); err != nil {
		return res, err
	}
	entry := e.Graph.Entry()
	if entry == nil {
		res.Completed = true
		e.complete(true)
		return res, nil
	}

	var (
		work    = []point{{block: entry}}
		visited = roaring64.New()
		loops   = e.Graph.LoopBlocks()
		entered = make(map[int]int)
		pruned  bool
	)
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		if !visited.CheckedAdd(pointKey(p)) {
			continue
		}
		if loops[p.block.Index] {
			entered[p.block.Index]++
			if entered[p.block.Index] > e.MaxLoopVisits {
				pruned = true
				continue
			}
		}

		state := p.state
		for _, n := range p.block.Nodes {
			res.Steps++
			if res.Steps > e.MaxSteps {
				e.complete(false)
				return res, nil
			}
			if res.Steps%cancelEvery == 0 {
				if err := ctx.Err(); err != nil {
					return res, err
				}
			}
			for _, c := range e.Checks {
				c.PreProcess(n, state)
			}
			state = e.apply(n, state)
		}
		work = e.successors(p.block, state, work)
	}

	res.Completed = !pruned
	e.complete(res.Completed)
	return res, nil
}

func (e *Engine) complete(completed bool) {
	for _, c := range e.Checks {
		c.ExecutionCompleted(completed)
	}
}

func (e *Engine) successors(b *cfg.Block, s State, work []point) []point {
	if b.Cond == nil || len(b.Succs) != 2 {
		for _, succ := range b.Succs {
			work = append(work, point{block: succ, state: s})
		}
		return work
	}

	value, known := e.evaluate(b.Cond, s)
	for _, c := range e.Checks {
		c.ConditionEvaluated(b.Cond, value, known)
	}
	if known {
		return append(work, point{block: b.Succs[branch(value)], state: s})
	}
	// false edge first so the true edge is explored first
	if fs, ok := e.learn(b.Cond, false, s); ok {
		work = append(work, point{block: b.Succs[1], state: fs})
	}
	if ts, ok := e.learn(b.Cond, true, s); ok {
		work = append(work, point{block: b.Succs[0], state: ts})
	}
	return work
}

func branch(value bool) int {
	if value {
		return 0
	}
	return 1
}

func pointKey(p point) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(p.block.Index))
	binary.LittleEndian.PutUint64(buf[4:], p.state.Hash())
	return xxhash.Sum64(buf[:])
}

// apply returns the state after n executes. What n dereferences or divides
// by is known to be non-nil and non-zero afterwards, since the path would
// have ended otherwise. Assignments take effect after that.
func (e *Engine) apply(n *ast.Node, s State) State {
	lang := e.Session.Lang
	e.inspect(n, func(m *ast.Node) {
		if lang.Dereference != nil {
			if x := lang.Dereference(m); x != nil {
				if sym, ok := e.Session.Symbol(x); ok {
					s, _ = s.Constrain(sym, NotNull)
				}
			}
		}
		if lang.Division != nil {
			if d := lang.Division(m); d != nil {
				if sym, ok := e.Session.Symbol(d); ok {
					s, _ = s.Constrain(sym, NotZero)
				}
			}
		}
	})

	e.inspect(n, func(m *ast.Node) {
		switch {
		case ast.Is(m, lang.Assignments):
			lefts, rights := m.ChildrenOf("left"), m.ChildrenOf("right")
			if (m.Token == "=" || m.Token == ":=") && len(lefts) == len(rights) {
				// all right-hand sides are read before any assignment
				values := make([]Constraint, len(rights))
				for i, r := range rights {
					values[i] = e.valueOf(r, s)
				}
				for i, l := range lefts {
					if sym, ok := e.Session.Symbol(l); ok {
						s = s.Set(sym, values[i])
					}
				}
				return
			}
			for _, l := range lefts {
				s = e.forget(s, l)
			}
		case ast.Is(m, lang.Variables):
			names, values := m.ChildrenOf("name"), m.ChildrenOf("value")
			for i, name := range names {
				sym, ok := e.Session.Symbol(name)
				if !ok {
					continue
				}
				switch {
				case len(values) == len(names):
					s = s.Set(sym, e.valueOf(values[i], s))
				case len(values) == 0:
					s = s.Set(sym, zeroValue(m.Child("type")))
				default:
					s = s.Forget(sym)
				}
			}
		case m.Kind == "IncDecStmt":
			s = e.forget(s, m.Child("operand"))
		case m.Kind == "UnaryExpr" && m.Token == "&":
			// the variable may change through the pointer
			s = e.forget(s, m.Child("operand"))
		case m.Field == "key" || m.Field == "value":
			if p := m.Parent(); p != nil && p.Kind == "RangeStmt" {
				s = e.forget(s, m)
			}
		}
	})
	return s
}

func (e *Engine) forget(s State, n *ast.Node) State {
	if sym, ok := e.Session.Symbol(n); ok {
		return s.Forget(sym)
	}
	return s
}

// inspect visits n and its descendants outside nested functions.
func (e *Engine) inspect(n *ast.Node, fn func(*ast.Node)) {
	ast.Inspect(n, func(m *ast.Node) bool {
		if m != n && e.Session.Lang.IsFunctionLike(m) {
			return false
		}
		fn(m)
		return true
	})
}

// valueOf returns what is known about expr's value in s.
func (e *Engine) valueOf(expr *ast.Node, s State) Constraint {
	lang := e.Session.Lang
	expr = ast.Unwrap(expr, lang.Parenthesized)
	if expr == nil {
		return 0
	}
	if v, ok := e.Session.Semantic.ConstantValue(expr); ok {
		return constantConstraint(v)
	}
	switch {
	case ast.Is(expr, lang.ObjectCreations), ast.Is(expr, lang.Lambdas), ast.Is(expr, lang.StringLiterals):
		return NotNull
	case expr.Kind == "UnaryExpr" && expr.Token == "&":
		return NotNull
	case ast.Is(expr, lang.Invocations):
		if name := lang.CalleeName; name != nil {
			if callee := name(expr); callee == "new" || callee == "make" {
				return NotNull
			}
		}
		return 0
	}
	if sym, ok := e.Session.Symbol(expr); ok {
		return s.Get(sym)
	}
	return 0
}

func constantConstraint(v any) Constraint {
	switch v := v.(type) {
	case bool:
		if v {
			return True
		}
		return False
	case int64:
		if v == 0 {
			return Zero
		}
		return NotZero
	case string:
		return NotNull
	}
	if v == ast.Null {
		return Null
	}
	return 0
}

// zeroValue is the constraint of a Go variable declared without a value.
func zeroValue(typ *ast.Node) Constraint {
	if typ == nil {
		return 0
	}
	switch typ.Kind {
	case "StarExpr", "MapType", "InterfaceType", "FuncType", "ChanType":
		return Null
	case "ArrayType":
		if typ.Child("len") == nil && len(typ.Children) == 1 {
			return Null
		}
	case "Ident":
		switch typ.Text() {
		case "bool":
			return False
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte", "rune":
			return Zero
		case "error", "any":
			return Null
		}
	}
	return 0
}

// evaluate decides cond in s when the state allows it.
func (e *Engine) evaluate(cond *ast.Node, s State) (value, known bool) {
	lang := e.Session.Lang
	cond = ast.Unwrap(cond, lang.Parenthesized)
	if cond == nil {
		return false, false
	}
	if v, ok := e.Session.Semantic.ConstantValue(cond); ok {
		b, isBool := v.(bool)
		return b, isBool
	}
	switch {
	case isNot(cond):
		v, k := e.evaluate(operand(cond), s)
		return !v, k
	case ast.Is(cond, lang.LogicalAnd):
		l, lk := e.evaluate(cond.Child("left"), s)
		if lk && !l {
			return false, true
		}
		r, rk := e.evaluate(cond.Child("right"), s)
		if rk && !r {
			return false, true
		}
		return true, lk && rk
	case ast.Is(cond, lang.LogicalOr):
		l, lk := e.evaluate(cond.Child("left"), s)
		if lk && l {
			return true, true
		}
		r, rk := e.evaluate(cond.Child("right"), s)
		if rk && r {
			return true, true
		}
		return false, lk && rk
	}
	if sym, c, eq, ok := e.comparison(cond); ok {
		cur := s.Get(sym)
		switch {
		case cur&c != 0:
			return eq, true
		case cur&c.opposite() != 0:
			return !eq, true
		}
		return false, false
	}
	if sym, ok := e.Session.Symbol(cond); ok {
		switch cur := s.Get(sym); {
		case cur&True != 0:
			return true, true
		case cur&False != 0:
			return false, true
		}
	}
	return false, false
}

// learn returns s narrowed by cond having value. It reports false when the
// state rules that out.
func (e *Engine) learn(cond *ast.Node, value bool, s State) (State, bool) {
	lang := e.Session.Lang
	cond = ast.Unwrap(cond, lang.Parenthesized)
	if cond == nil {
		return s, true
	}
	switch {
	case isNot(cond):
		return e.learn(operand(cond), !value, s)
	case ast.Is(cond, lang.LogicalAnd) && value, ast.Is(cond, lang.LogicalOr) && !value:
		s, ok := e.learn(cond.Child("left"), value, s)
		if !ok {
			return s, false
		}
		return e.learn(cond.Child("right"), value, s)
	case ast.Is(cond, lang.LogicalAnd), ast.Is(cond, lang.LogicalOr):
		return s, true
	}
	if sym, c, eq, ok := e.comparison(cond); ok {
		if eq != value {
			c = c.opposite()
		}
		return s.Constrain(sym, c)
	}
	if sym, ok := e.Session.Symbol(cond); ok {
		if value {
			return s.Constrain(sym, True)
		}
		return s.Constrain(sym, False)
	}
	return s, true
}

// comparison matches `x == nil`, `x != 0` and their mirrors. It returns the
// symbol, the constraint the equality asserts and whether the operator is ==.
func (e *Engine) comparison(cond *ast.Node) (sym uint32, c Constraint, eq bool, ok bool) {
	if cond.Token != "==" && cond.Token != "!=" {
		return 0, 0, false, false
	}
	left, right := cond.Child("left"), cond.Child("right")
	if left == nil || right == nil {
		return 0, 0, false, false
	}
	for _, pair := range [2][2]*ast.Node{{left, right}, {right, left}} {
		s, isSym := e.Session.Symbol(pair[0])
		if !isSym {
			continue
		}
		v, isConst := e.Session.Semantic.ConstantValue(pair[1])
		if !isConst {
			continue
		}
		switch {
		case v == ast.Null:
			c = Null
		case v == int64(0):
			c = Zero
		default:
			continue
		}
		return s, c, cond.Token == "==", true
	}
	return 0, 0, false, false
}

func isNot(n *ast.Node) bool {
	return n.Token == "!" && (n.Kind == "UnaryExpr" || n.Kind == "prefix_unary_expression" || n.Kind == "unary_expression")
}

func operand(n *ast.Node) *ast.Node {
	if o := n.Child("operand"); o != nil {
		return o
	}
	if len(n.Children) > 0 {
		return n.Children[len(n.Children)-1]
	}
	return nil
}
