// Package certvalidation reports server certificate validation callbacks
// that accept every certificate.
//
// The walker works backwards from the value handed to a validation sink:
// through variables to their assignments, through parameters to the
// arguments of every call site, through factory calls to what they return,
// and finally into the callback bodies to see what they answer. A callback
// is insecure when every path through it returns the language's accept
// constant. One path that may reject is enough to keep a whole fan-out
// quiet.
package certvalidation

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/panbanda/vigil/pkg/ast"
)

type mode uint64

const (
	// callback evaluates an expression that produces a callback.
	callback mode = iota
	// result evaluates an expression a callback returns.
	result
	// fanout follows a parameter to the arguments passed for it.
	fanout
	modes
)

// Walker resolves the implementations behind one callback value. It keeps
// the results of every function and parameter it follows, so reuse a
// Walker only for a single sink.
type Walker struct {
	lang *ast.Language
	sem  ast.Semantic

	active *roaring64.Bitmap
	done   map[uint64][]*ast.Node
}

// NewWalker creates a walker resolving symbols through sem.
func NewWalker(lang *ast.Language, sem ast.Semantic) *Walker {
	if sem == nil {
		sem = ast.NoSemantic{}
	}
	return &Walker{
		lang:   lang,
		sem:    sem,
		active: roaring64.New(),
		done:   make(map[uint64][]*ast.Node),
	}
}

// Callback returns the locations proving that expr always accepts: each
// hop from expr down to the accepting returns. An empty result means some
// implementation may reject, or that the value could not be resolved.
func (w *Walker) Callback(expr *ast.Node) []*ast.Node {
	return w.eval(expr, callback)
}

func (w *Walker) eval(expr *ast.Node, m mode) []*ast.Node {
	expr = ast.Unwrap(expr, w.lang.Parenthesized)
	if expr == nil {
		return nil
	}

	if m == result {
		if v, ok := w.sem.ConstantValue(expr); ok {
			if v == w.lang.Accept {
				return []*ast.Node{expr}
			}
			return nil
		}
	} else {
		switch {
		case w.lang.DangerousMember != nil && w.lang.DangerousMember(expr):
			return []*ast.Node{expr}
		case ast.Is(expr, w.lang.Lambdas):
			return w.implementation(expr)
		case w.lang.AnonymousImplementation != nil && w.lang.AnonymousImplementation(expr) != nil:
			return w.implementation(w.lang.AnonymousImplementation(expr))
		case ast.Is(expr, w.lang.ObjectCreations):
			// new Callback(Method)
			if args := w.lang.Args(expr); len(args) == 1 {
				return hop(expr, w.eval(args[0], callback))
			}
			return nil
		}
	}

	if ast.Is(expr, w.lang.Invocations) {
		return hop(expr, w.invocation(expr, m))
	}

	decl, ok := w.sem.Declaration(expr)
	if !ok {
		return nil
	}
	switch w.sem.DeclarationKind(decl) {
	case ast.DeclParameter:
		if m == callback {
			return hop(expr, w.parameter(decl))
		}
	case ast.DeclLocal, ast.DeclField:
		// a variable assigned from itself, directly or through other
		// locals, ends the walk on its second visit
		return hop(expr, w.memo(m, decl, func() []*ast.Node {
			return w.all(w.sem.AssignedValues(decl), m)
		}))
	case ast.DeclMethod:
		if m == callback {
			return hop(expr, w.implementation(decl))
		}
	}
	return nil
}

// all evaluates every candidate. The union of their locations is returned
// only when none of them came back empty.
func (w *Walker) all(exprs []*ast.Node, m mode) []*ast.Node {
	var out []*ast.Node
	for _, e := range exprs {
		locs := w.eval(e, m)
		if len(locs) == 0 {
			return nil
		}
		out = append(out, locs...)
	}
	return out
}

// implementation evaluates what fn answers when called as a callback.
func (w *Walker) implementation(fn *ast.Node) []*ast.Node {
	return w.memo(result, fn, func() []*ast.Node { return w.returns(fn, result) })
}

// invocation evaluates a call by following what the callee returns. Calls
// that do not resolve to a declaration in the unit end the walk.
func (w *Walker) invocation(call *ast.Node, m mode) []*ast.Node {
	callee, ok := w.sem.Callee(call)
	if !ok {
		return nil
	}
	return w.memo(m, callee, func() []*ast.Node { return w.returns(callee, m) })
}

// parameter follows a parameter to the argument every call site passes.
func (w *Walker) parameter(decl *ast.Node) []*ast.Node {
	fn := ast.Enclosing(decl, ast.MatcherFunc(w.lang.IsFunctionLike))
	if fn == nil {
		return nil
	}
	idx := slices.Index(w.lang.ParamNames(fn), decl.Text())
	if idx < 0 {
		return nil
	}
	return w.memo(fanout, decl, func() []*ast.Node {
		var args []*ast.Node
		for _, call := range w.sem.CallSites(fn) {
			if a := w.lang.Args(call); idx < len(a) {
				args = append(args, a[idx])
			}
		}
		return w.all(args, callback)
	})
}

// returns evaluates the returned expressions of fn. Returns that call fn
// again are left out, and a body that may throw is never insecure.
func (w *Walker) returns(fn *ast.Node, m mode) []*ast.Node {
	body := w.lang.BodyOf(fn)
	if body == nil {
		return nil
	}
	if !ast.Is(body, w.lang.Blocks) {
		// expression-bodied lambda or member
		if body.Kind == "arrow_expression_clause" {
			sig := w.lang.Significant(body)
			if len(sig) == 0 {
				return nil
			}
			body = sig[0]
		}
		return w.eval(body, m)
	}

	var (
		exprs  []*ast.Node
		throws bool
	)
	ast.Inspect(body, func(n *ast.Node) bool {
		if throws {
			return false
		}
		if n != body && (w.lang.IsFunctionLike(n) || ast.Is(n, w.lang.TypeDecls)) {
			return false
		}
		switch {
		case ast.Is(n, w.lang.Throws):
			throws = true
			return false
		case ast.Is(n, w.lang.Returns):
			if v := w.lang.Returned(n); v != nil && !w.callsItself(fn, v) {
				exprs = append(exprs, v)
			}
			return false
		}
		return true
	})
	if throws {
		return nil
	}
	return w.all(exprs, m)
}

func (w *Walker) callsItself(fn, expr *ast.Node) bool {
	expr = ast.Unwrap(expr, w.lang.Parenthesized)
	if !ast.Is(expr, w.lang.Invocations) {
		return false
	}
	callee, ok := w.sem.Callee(expr)
	return ok && callee == fn
}

// memo evaluates f once per node and mode. A node reached again while its
// own evaluation is still running yields nothing.
func (w *Walker) memo(m mode, n *ast.Node, f func() []*ast.Node) []*ast.Node {
	key := uint64(n.ID())*uint64(modes) + uint64(m)
	if locs, ok := w.done[key]; ok {
		return locs
	}
	if !w.active.CheckedAdd(key) {
		return nil
	}
	locs := f()
	w.active.Remove(key)
	w.done[key] = locs
	return locs
}

func hop(expr *ast.Node, locs []*ast.Node) []*ast.Node {
	if len(locs) == 0 {
		return nil
	}
	return append([]*ast.Node{expr}, locs...)
}
