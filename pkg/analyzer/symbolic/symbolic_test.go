package symbolic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/cfg"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

func TestState_Immutable(t *testing.T) {
	t.Parallel()
	var empty State
	a := empty.Set(1, Null)
	b := a.Set(2, NotZero)

	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, Null, b.Get(1))
	assert.Equal(t, Constraint(0), a.Get(2))
	assert.Equal(t, "null", a.Get(1).String())
	assert.Equal(t, "unknown", Constraint(0).String())
}

func TestState_Hash(t *testing.T) {
	t.Parallel()
	var s State
	x := s.Set(1, Null).Set(2, Zero)
	y := s.Set(2, Zero).Set(1, Null)
	assert.Equal(t, x.Hash(), y.Hash(), "hash ignores insertion order")
	assert.NotEqual(t, x.Hash(), s.Set(1, NotNull).Set(2, Zero).Hash())
	assert.Equal(t, uint64(0), s.Hash())
	assert.Equal(t, s.Hash(), x.Forget(1).Forget(2).Hash())
}

func TestState_Constrain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		initial Constraint
		add     Constraint
		want    Constraint
		ok      bool
	}{
		{"unknown learns", 0, Null, Null, true},
		{"same holds", NotNull, NotNull, NotNull, true},
		{"contradiction", Null, NotNull, Null, false},
		{"independent families", NotNull, Zero, NotNull | Zero, true},
		{"truth contradiction", True, False, True, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := State{}.Set(7, tt.initial)
			got, ok := s.Constrain(7, tt.add)
			if ok != tt.ok {
				t.Errorf("Constrain() ok = %v, want %v", ok, tt.ok)
			}
			if got.Get(7) != tt.want {
				t.Errorf("Constrain() = %v, want %v", got.Get(7), tt.want)
			}
		})
	}
}

const goSource = `package a

type node struct {
	next *node
	val  int
}

func f(p *node) int {
	if p == nil {
		return p.val
	}
	return p.val
}

func g() int {
	var p *node
	return p.val
}

func h(p *node) int {
	if p != nil {
		return p.val
	}
	return 0
}

func k(p *node) int {
	p = &node{}
	return p.val
}

func div(a int) int {
	d := 0
	if a > 0 {
		d = a
	}
	return a / d
}

func safe(a, d int) int {
	if d == 0 {
		return 0
	}
	return a / d
}

func cond(p *node) int {
	if p == nil {
		return 0
	}
	if p != nil {
		return p.val
	}
	return 1
}

func flag() bool {
	done := false
	if done {
		return true
	}
	for {
		if true {
			return false
		}
	}
}

func walk(p *node) int {
	n := 0
	for p != nil {
		n += p.val
		p = p.next
	}
	return n
}

func captured() int {
	var p *node
	set := func() {
		p = &node{}
	}
	set()
	return p.val
}

func scaled(a int) int {
	d := 0
	func() {
		d++
	}()
	return a / d
}

func readOnly() int {
	var p *node
	get := func() *node { return p }
	_ = get
	return p.val
}
`

func TestRule_Go(t *testing.T) {
	t.Parallel()
	diags := testutil.Run(t, New(), testutil.Go(t, goSource), nil)

	nils := testutil.Only(diags, NilDereferenceID)
	require.Len(t, nils, 3, "variables a closure writes are not tracked")
	assert.Equal(t, 10, nils[0].Location.Line)
	assert.Equal(t, "'p' is nil on at least one execution path.", nils[0].Message)
	assert.Equal(t, 17, nils[1].Location.Line)
	assert.Equal(t, 99, nils[2].Location.Line, "a closure that only reads p changes nothing")

	divs := testutil.Only(diags, DivisionByZeroID)
	require.Len(t, divs, 1)
	assert.Equal(t, 37, divs[0].Location.Line)
	assert.Equal(t, "Make sure 'd' can't be zero before doing this calculation.", divs[0].Message)
	assert.Equal(t, models.SeverityCritical, divs[0].Severity)

	always := testutil.Only(diags, ConditionAlwaysTrueID)
	require.Len(t, always, 1)
	assert.Equal(t, 51, always[0].Location.Line)
	assert.Equal(t, `Change this condition so that it does not always evaluate to "true".`, always[0].Message)

	never := testutil.Only(diags, ConditionAlwaysFalseID)
	require.Len(t, never, 1)
	assert.Equal(t, 59, never[0].Location.Line)
}

func TestRule_Idempotent(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, goSource)
	first := testutil.Run(t, New(), prog, nil)
	second := testutil.Run(t, New(), prog, nil)
	assert.Equal(t, first, second)
}

func TestSelfAssignment(t *testing.T) {
	t.Parallel()
	diags := testutil.Only(testutil.Run(t, New(), testutil.Go(t, `package a

type box struct{ v int }

func f(x, y int, b *box) int {
	x = x
	x, y = y, x
	b.v = b.v
	return x + y
}
`), nil), SelfAssignmentID)
	require.Len(t, diags, 2)
	assert.Equal(t, 6, diags[0].Location.Line)
	assert.Equal(t, "Remove or correct this useless self-assignment.", diags[0].Message)
	assert.Equal(t, 8, diags[1].Location.Line)

	diags = testutil.Only(testutil.Run(t, New(), testutil.CSharp(t, `class C {
    int x;
    void M(int x) {
        this.x = x;
        x = x;
    }
}
`), nil), SelfAssignmentID)
	require.Len(t, diags, 1)
	assert.Equal(t, 5, diags[0].Location.Line)
}

// countingFlow counts graph builds.
type countingFlow struct {
	cfg.Builder
	builds int
}

func (c *countingFlow) Build(ctx context.Context, decl *ast.Node) (*cfg.Graph, error) {
	c.builds++
	return c.Builder.Build(ctx, decl)
}

type probe struct{ steps *int }

func (p probe) PreProcess(*ast.Node, State)            { *p.steps++ }
func (probe) ConditionEvaluated(*ast.Node, bool, bool) {}
func (probe) ExecutionCompleted(bool)                  {}

func TestRule_DispatchGating(t *testing.T) {
	t.Parallel()
	descriptor := func(id string) models.Descriptor {
		return models.Descriptor{ID: id, DefaultSeverity: models.SeverityMajor, DefaultEnabled: true}
	}
	off := false
	tests := []struct {
		name          string
		disabled      []string
		wantInstances int
		wantBuilds    int
	}{
		{"both enabled", nil, 1, 1},
		{"one disabled", []string{"probe-a"}, 1, 1},
		{"both disabled", []string{"probe-a", "probe-b"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var instances, steps int
			rule := NewRunner(CheckType{
				Name:        "probe",
				Descriptors: []models.Descriptor{descriptor("probe-a"), descriptor("probe-b")},
				New: func(*Session) Check {
					instances++
					return probe{steps: &steps}
				},
			})

			prog := testutil.Go(t, `package a

func f(x int) int {
	if x > 0 {
		return 1
	}
	return 0
}
`)
			flow := &countingFlow{Builder: prog.Flow}
			prog.Flow = flow

			conf := config.DefaultConfig()
			for _, id := range tt.disabled {
				conf.Rules[id] = config.RuleConfig{Enabled: &off}
			}
			testutil.Run(t, rule, prog, conf)

			assert.Equal(t, tt.wantInstances, instances)
			assert.Equal(t, tt.wantBuilds, flow.builds)
			if tt.wantBuilds > 0 {
				assert.Positive(t, steps, "the engine ran")
			}
		})
	}
}

type exploding struct{}

func (exploding) PreProcess(*ast.Node, State)              { panic("boom") }
func (exploding) ConditionEvaluated(*ast.Node, bool, bool) {}
func (exploding) ExecutionCompleted(bool)                  {}

func TestRule_EngineErrorWrapsPanics(t *testing.T) {
	t.Parallel()
	rule := NewRunner(CheckType{
		Name:        "exploding",
		Descriptors: []models.Descriptor{{ID: "exploding", DefaultEnabled: true, DefaultSeverity: models.SeverityMajor}},
		New:         func(*Session) Check { return exploding{} },
	})
	prog := testutil.Go(t, `package a

func f() int {
	return 1
}
`)
	_, err := analyzer.RunRule(context.Background(), rule, prog, nil)
	require.Error(t, err)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "f", engineErr.Declaration)
	assert.Equal(t, 3, engineErr.Location.Line)
	assert.Contains(t, engineErr.Error(), "boom")
}

func TestEngine_Cancellation(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, `package a

func f() int {
	return 1
}
`)
	decl := testutil.Find(testutil.Root(t, prog), "FuncDecl", 0)
	g, err := prog.Flow.Build(context.Background(), decl)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewEngine(g, &Session{Lang: decl.File().Language, Semantic: prog.Semantic, Decl: decl}, nil)
	_, err = engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, context.Canceled, wrap(decl.File().Language, decl, err), "cancellation is not wrapped")
	assert.False(t, errors.As(wrap(decl.File().Language, decl, err), new(*EngineError)))
}

func TestEngine_MaxSteps(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, `package a

func f(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}
`)
	decl := testutil.Find(testutil.Root(t, prog), "FuncDecl", 0)
	g, err := prog.Flow.Build(context.Background(), decl)
	require.NoError(t, err)

	engine := NewEngine(g, &Session{Lang: decl.File().Language, Semantic: prog.Semantic, Decl: decl}, nil)
	res, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Completed)

	engine.MaxSteps = 1
	res, err = engine.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 2, res.Steps)
}
