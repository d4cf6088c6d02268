package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

type fakeRule struct {
	descs []models.Descriptor
	run   func(ctx context.Context, pass *Pass) error
}

func (r fakeRule) Descriptors() []models.Descriptor { return r.descs }

func (r fakeRule) Run(ctx context.Context, pass *Pass) error { return r.run(ctx, pass) }

func program(paths ...string) *Program {
	unit := ast.NewUnit()
	for _, path := range paths {
		f := unit.NewFile(path, &ast.Language{ID: ast.LangGo}, []byte("package a\n"))
		f.SetRoot(f.NewNode("File", ast.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 10, EndByte: 9}))
	}
	return &Program{Unit: unit, Semantic: ast.NoSemantic{}}
}

func span(line, col int) ast.Span {
	return ast.Span{StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
}

var (
	onByDefault  = models.Descriptor{ID: "on", DefaultEnabled: true, DefaultSeverity: models.SeverityMajor}
	offByDefault = models.Descriptor{ID: "off", DefaultEnabled: false, DefaultSeverity: models.SeverityMinor}
)

func reportBoth(_ context.Context, pass *Pass) error {
	at := span(3, 1)
	at.File = pass.File.Path
	pass.Reportf("off", at, "off fired")
	pass.Report(Issue{
		Rule:      "on",
		Span:      at,
		Message:   "on fired",
		Secondary: []Secondary{{Span: span(2, 4), Message: "+1"}},
	})
	at.StartLine = 1
	pass.Reportf("on", at, "earlier")
	return nil
}

func TestDriver_DefaultsAndSorting(t *testing.T) {
	t.Parallel()
	rule := fakeRule{descs: []models.Descriptor{onByDefault, offByDefault}, run: reportBoth}

	diags, err := RunRule(context.Background(), rule, program("b.go", "a.go"), nil)
	require.NoError(t, err)
	require.Len(t, diags, 4)

	assert.Equal(t, "a.go", diags[0].Location.File)
	assert.Equal(t, "earlier", diags[0].Message)
	assert.Equal(t, "on fired", diags[1].Message)
	assert.Equal(t, models.SeverityMajor, diags[1].Severity)
	require.Len(t, diags[1].Secondary, 1)
	assert.Equal(t, "+1", diags[1].Secondary[0].Message)
	assert.Equal(t, 2, diags[1].Secondary[0].Location.Line)
	assert.Equal(t, "b.go", diags[2].Location.File)
}

func TestDriver_ConfigResolution(t *testing.T) {
	t.Parallel()
	on, off := true, false
	cfg := config.DefaultConfig()
	cfg.Rules["off"] = config.RuleConfig{Enabled: &on, Severity: "blocker"}
	cfg.Overrides = []config.Override{{
		Paths: []string{"legacy/"},
		Rules: map[string]config.RuleConfig{"on": {Enabled: &off}},
	}}
	rule := fakeRule{descs: []models.Descriptor{onByDefault, offByDefault}, run: reportBoth}

	d := NewDriver(cfg, []Rule{rule}, WithRoot("/src"))
	diags, err := d.Run(context.Background(), program("/src/legacy/x.go"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "off", diags[0].Rule)
	assert.Equal(t, models.SeverityBlocker, diags[0].Severity)
}

func TestDriver_SkipsRulesWithNothingEnabled(t *testing.T) {
	t.Parallel()
	ran := false
	rule := fakeRule{
		descs: []models.Descriptor{offByDefault},
		run: func(context.Context, *Pass) error {
			ran = true
			return nil
		},
	}
	_, err := RunRule(context.Background(), rule, program("a.go"), nil)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestDriver_WithOnly(t *testing.T) {
	t.Parallel()
	on := true
	cfg := config.DefaultConfig()
	cfg.Rules["off"] = config.RuleConfig{Enabled: &on}
	rule := fakeRule{descs: []models.Descriptor{onByDefault, offByDefault}, run: reportBoth}

	diags, err := NewDriver(cfg, []Rule{rule}, WithOnly("off")).Run(context.Background(), program("a.go"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "off", diags[0].Rule)
}

func TestDriver_RuleErrorsAreCollected(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	failing := fakeRule{
		descs: []models.Descriptor{{ID: "failing", DefaultEnabled: true, DefaultSeverity: models.SeverityMinor}},
		run:   func(context.Context, *Pass) error { return boom },
	}
	working := fakeRule{descs: []models.Descriptor{onByDefault}, run: reportBoth}

	diags, err := NewDriver(nil, []Rule{failing, working}).Run(context.Background(), program("a.go"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "failing", re.Rule)
	assert.Equal(t, "a.go", re.File)
	assert.Len(t, diags, 2, "other rules still report")
}

func TestDriver_CancellationIsNotWrapped(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	rule := fakeRule{
		descs: []models.Descriptor{onByDefault},
		run: func(ctx context.Context, _ *Pass) error {
			cancel()
			return ctx.Err()
		},
	}
	_, err := RunRule(ctx, rule, program("a.go", "b.go"), nil)
	assert.Equal(t, context.Canceled, err)
}

func TestDriver_Descriptors(t *testing.T) {
	t.Parallel()
	d := NewDriver(nil, []Rule{fakeRule{descs: []models.Descriptor{onByDefault, offByDefault}}})
	var ids []string
	for _, desc := range d.Descriptors() {
		ids = append(ids, desc.ID)
	}
	assert.Equal(t, []string{"off", "on"}, ids)
}

func TestPass_IntParam(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.Rules["on"] = config.RuleConfig{Params: map[string]any{"max": int64(7)}}
	var got, fallback int
	rule := fakeRule{
		descs: []models.Descriptor{onByDefault},
		run: func(_ context.Context, pass *Pass) error {
			got = pass.IntParam("on", "max", 3)
			fallback = pass.IntParam("on", "min", 2)
			return nil
		},
	}
	_, err := RunRule(context.Background(), rule, program("a.go"), cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 2, fallback)
}

func TestGroup(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	a := write("a.go", "package p\n")
	b := write("b.go", "package p\n")
	ext := write("p_test.go", "package p_test\n")
	cs := write("Program.cs", "class P {}\n")
	java := write("Main.java", "class Main {}\n")
	write("notes.txt", "hello")

	units := Group([]string{b, ext, cs, filepath.Join(dir, "notes.txt"), java, a})
	require.Len(t, units, 4)

	byKey := map[string]Source{}
	for _, u := range units {
		byKey[u.Key] = u
	}
	assert.Equal(t, []string{a, b}, byKey[dir+" (p)"].Paths)
	assert.Equal(t, []string{ext}, byKey[dir+" (p_test)"].Paths)
	assert.Equal(t, ast.LangCSharp, byKey[cs].Language)
	assert.Equal(t, ast.LangJava, byKey[java].Language)
}

func TestLoad_Go(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package p\n\nfunc f() {}\n"), 0o644))

	prog, err := Load(context.Background(), Group([]string{path})[0])
	require.NoError(t, err)
	require.Len(t, prog.Unit.Files, 1)
	assert.NotNil(t, prog.Flow)
	assert.NotNil(t, prog.Semantic)
}

func TestLoad_Unsupported(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), Source{Key: "x", Language: ast.LangUnknown})
	assert.ErrorIs(t, err, ast.ErrUnsupportedLanguage)
}
