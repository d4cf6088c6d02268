package symbolic

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/models"
)

const (
	NilDereferenceID       = "nil-dereference"
	DivisionByZeroID       = "division-by-zero"
	ConditionAlwaysTrueID  = "condition-always-true"
	ConditionAlwaysFalseID = "condition-always-false"
)

// Session is what the checks of one declaration share.
type Session struct {
	Pass     *analyzer.Pass
	Decl     *ast.Node
	Lang     *ast.Language
	Semantic ast.Semantic

	escaped *roaring.Bitmap
}

// NewSession binds a declaration of the pass's file.
func NewSession(pass *analyzer.Pass, decl *ast.Node) *Session {
	sem := pass.Semantic
	if sem == nil {
		sem = ast.NoSemantic{}
	}
	return &Session{Pass: pass, Decl: decl, Lang: pass.Lang, Semantic: sem}
}

// Symbol returns the local variable or parameter an identifier refers to.
// Variables that a nested function writes are not symbols: the engine
// never sees when those writes happen.
func (s *Session) Symbol(n *ast.Node) (uint32, bool) {
	n = ast.Unwrap(n, s.Lang.Parenthesized)
	if !ast.Is(n, s.Lang.Identifiers) {
		return 0, false
	}
	decl, ok := s.Semantic.Declaration(n)
	if !ok {
		return 0, false
	}
	switch s.Semantic.DeclarationKind(decl) {
	case ast.DeclLocal, ast.DeclParameter:
		if s.escapedWrites().Contains(decl.ID()) {
			return 0, false
		}
		return decl.ID(), true
	}
	return 0, false
}

// escapedWrites collects the variables assigned, incremented or
// address-taken inside the functions nested in Decl.
func (s *Session) escapedWrites() *roaring.Bitmap {
	if s.escaped != nil {
		return s.escaped
	}
	s.escaped = roaring.New()
	if s.Decl == nil {
		return s.escaped
	}
	ast.Inspect(s.Decl, func(n *ast.Node) bool {
		if n == s.Decl || !s.Lang.IsFunctionLike(n) {
			return true
		}
		ast.Inspect(n, func(m *ast.Node) bool {
			for _, target := range s.writeTargets(m) {
				target = ast.Unwrap(target, s.Lang.Parenthesized)
				if !ast.Is(target, s.Lang.Identifiers) {
					continue
				}
				if decl, ok := s.Semantic.Declaration(target); ok {
					s.escaped.Add(decl.ID())
				}
			}
			return true
		})
		return false
	})
	return s.escaped
}

func (s *Session) writeTargets(n *ast.Node) []*ast.Node {
	switch {
	case ast.Is(n, s.Lang.Assignments):
		return n.ChildrenOf("left")
	case n.Kind == "IncDecStmt", n.Kind == "UnaryExpr" && n.Token == "&":
		return []*ast.Node{n.Child("operand")}
	}
	return nil
}

// CheckType creates the check behind one or more diagnostics. Only one
// check of a type is created per declaration however many of its
// diagnostics are enabled.
type CheckType struct {
	Name        string
	Descriptors []models.Descriptor
	New         func(*Session) Check
}

// executor is implemented by checks that can tell up front they have
// nothing to look at.
type executor interface {
	ShouldExecute() bool
}

// DefaultChecks returns the built-in check types.
func DefaultChecks() []CheckType {
	return []CheckType{
		{
			Name: "nil-dereference",
			Descriptors: []models.Descriptor{{
				ID:              NilDereferenceID,
				Name:            "Nil pointers should not be dereferenced",
				Description:     "Reports dereferences of a variable that is nil on at least one path reaching them.",
				DefaultSeverity: models.SeverityMajor,
				DefaultEnabled:  true,
			}},
			New: func(s *Session) Check { return &nilDereference{session: s, reported: roaring.New()} },
		},
		{
			Name: "division-by-zero",
			Descriptors: []models.Descriptor{{
				ID:              DivisionByZeroID,
				Name:            "Zero should not be a possible denominator",
				Description:     "Reports divisions and remainders whose divisor is zero on at least one path.",
				DefaultSeverity: models.SeverityCritical,
				DefaultEnabled:  true,
			}},
			New: func(s *Session) Check { return &divisionByZero{session: s, reported: roaring.New()} },
		},
		{
			Name: "condition-evaluation",
			Descriptors: []models.Descriptor{
				{
					ID:              ConditionAlwaysTrueID,
					Name:            "Conditions should not always evaluate to true",
					Description:     "Reports branch conditions that are true on every path reaching them.",
					DefaultSeverity: models.SeverityMajor,
					DefaultEnabled:  true,
				},
				{
					ID:              ConditionAlwaysFalseID,
					Name:            "Conditions should not always evaluate to false",
					Description:     "Reports branch conditions that are false on every path reaching them.",
					DefaultSeverity: models.SeverityMajor,
					DefaultEnabled:  true,
				},
			},
			New: func(s *Session) Check { return &conditionEvaluation{session: s, seen: make(map[uint32]*outcomes)} },
		},
	}
}

// walk visits n's subtree without entering nested functions.
func walk(lang *ast.Language, n *ast.Node, fn func(*ast.Node)) {
	ast.Inspect(n, func(m *ast.Node) bool {
		if m != n && lang.IsFunctionLike(m) {
			return false
		}
		fn(m)
		return true
	})
}

func contains(lang *ast.Language, root *ast.Node, pred func(*ast.Node) bool) bool {
	found := false
	ast.Inspect(root, func(n *ast.Node) bool {
		if found || (n != root && lang.IsFunctionLike(n)) {
			return false
		}
		found = pred(n)
		return !found
	})
	return found
}

type nilDereference struct {
	session  *Session
	reported *roaring.Bitmap
}

func (c *nilDereference) ShouldExecute() bool {
	lang := c.session.Lang
	return lang.Dereference != nil && contains(lang, c.session.Decl, func(n *ast.Node) bool {
		return lang.Dereference(n) != nil
	})
}

func (c *nilDereference) PreProcess(n *ast.Node, s State) {
	walk(c.session.Lang, n, func(m *ast.Node) {
		x := c.session.Lang.Dereference(m)
		if x == nil {
			return
		}
		sym, ok := c.session.Symbol(x)
		if !ok || s.Get(sym)&Null == 0 || !c.reported.CheckedAdd(x.ID()) {
			return
		}
		c.session.Pass.Reportf(NilDereferenceID, x.Span, "'%s' is nil on at least one execution path.", x.Text())
	})
}

func (*nilDereference) ConditionEvaluated(*ast.Node, bool, bool) {}
func (*nilDereference) ExecutionCompleted(bool)                  {}

type divisionByZero struct {
	session  *Session
	reported *roaring.Bitmap
}

func (c *divisionByZero) ShouldExecute() bool {
	lang := c.session.Lang
	return lang.Division != nil && contains(lang, c.session.Decl, func(n *ast.Node) bool {
		return lang.Division(n) != nil
	})
}

func (c *divisionByZero) PreProcess(n *ast.Node, s State) {
	walk(c.session.Lang, n, func(m *ast.Node) {
		d := c.session.Lang.Division(m)
		if d == nil {
			return
		}
		sym, ok := c.session.Symbol(d)
		if !ok || s.Get(sym)&Zero == 0 || !c.reported.CheckedAdd(d.ID()) {
			return
		}
		c.session.Pass.Reportf(DivisionByZeroID, d.Span, "Make sure '%s' can't be zero before doing this calculation.", d.Text())
	})
}

func (*divisionByZero) ConditionEvaluated(*ast.Node, bool, bool) {}
func (*divisionByZero) ExecutionCompleted(bool)                  {}

type outcomes struct {
	cond            *ast.Node
	onTrue, onFalse bool
	unknown         bool
}

// conditionEvaluation collects the outcome of every condition over the
// whole exploration and reports those that only ever went one way.
type conditionEvaluation struct {
	session *Session
	seen    map[uint32]*outcomes
	order   []*outcomes
}

func (c *conditionEvaluation) PreProcess(*ast.Node, State) {}

func (c *conditionEvaluation) ConditionEvaluated(cond *ast.Node, value, known bool) {
	o, ok := c.seen[cond.ID()]
	if !ok {
		o = &outcomes{cond: cond}
		c.seen[cond.ID()] = o
		c.order = append(c.order, o)
	}
	switch {
	case !known:
		o.unknown = true
	case value:
		o.onTrue = true
	default:
		o.onFalse = true
	}
}

func (c *conditionEvaluation) ExecutionCompleted(completed bool) {
	if !completed {
		return
	}
	for _, o := range c.order {
		if o.unknown || o.onTrue == o.onFalse {
			continue
		}
		// literal conditions such as `for true` are deliberate
		if _, constant := c.session.Semantic.ConstantValue(o.cond); constant {
			continue
		}
		id, value := ConditionAlwaysFalseID, "false"
		if o.onTrue {
			id, value = ConditionAlwaysTrueID, "true"
		}
		c.session.Pass.Report(analyzer.Issue{
			Rule:    id,
			Span:    o.cond.Span,
			Message: fmt.Sprintf("Change this condition so that it does not always evaluate to %q.", value),
		})
	}
}
