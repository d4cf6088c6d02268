package analysis

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/cache"
	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/analyzer/header"
	"github.com/panbanda/vigil/pkg/analyzer/symbolic"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

const goFile = `package a

type node struct{ val int }

func f() int {
	var p *node
	return p.val
}
`

const javaFile = `class Main {
    void m(int x) {
        x = x;
    }
}
`

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{
		"a/a.go":         goFile,
		"java/Main.java": javaFile,
		"README.md":      "# docs\n",
	})
	return dir
}

func TestNew(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	s := New(WithConfig(cfg))
	assert.Same(t, cfg, s.Config())
	assert.NotEmpty(t, s.Descriptors())
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	s := New(WithConfig(config.DefaultConfig()))

	var started int
	var progress atomic.Int32
	report, err := s.Analyze(context.Background(), []string{dir}, Options{
		Root:    dir,
		OnStart: func(n int) { started = n },
		OnProgress: func(_, total int, _ string) {
			progress.Add(1)
			assert.Equal(t, 2, total)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 2, started)
	assert.Equal(t, int32(2), progress.Load())
	assert.Empty(t, report.Errors)

	nils := testutil.Only(report.Diagnostics, symbolic.NilDereferenceID)
	require.Len(t, nils, 1)
	assert.Equal(t, filepath.Join(dir, "a", "a.go"), nils[0].Location.File)
	assert.Equal(t, 7, nils[0].Location.Line)

	self := testutil.Only(report.Diagnostics, symbolic.SelfAssignmentID)
	require.Len(t, self, 1)
	assert.Equal(t, 3, self[0].Location.Line)

	assert.Equal(t, report.Summary.Total, len(report.Diagnostics))
}

func TestAnalyze_Only(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	report, err := New(WithConfig(config.DefaultConfig())).Analyze(context.Background(), []string{dir}, Options{
		Only: []string{symbolic.SelfAssignmentID},
	})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, symbolic.SelfAssignmentID, report.Diagnostics[0].Rule)
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	s := New(WithConfig(config.DefaultConfig()))

	first, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	second, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyze_Cache(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	s := New(WithConfig(config.DefaultConfig()), WithCache(c))
	first, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries, "one entry per unit")

	second, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)

	testutil.WriteFile(t, filepath.Join(dir, "a", "a.go"), "package a\n")
	third, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	assert.Empty(t, testutil.Only(third.Diagnostics, symbolic.NilDereferenceID), "edited unit is re-analyzed")
}

func TestAnalyze_RuleErrorsAreReported(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	cfg := testutil.Config(header.ID, map[string]any{"header": "(", "regex": true})

	report, err := New(WithConfig(cfg)).Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 2, "one per unit")
	assert.Contains(t, report.Errors[0], header.ID)
	assert.NotEmpty(t, testutil.Only(report.Diagnostics, symbolic.NilDereferenceID), "other rules still report")
}

func TestAnalyze_LoadErrorsAreReported(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{
		"ok/ok.go":      goFile,
		"broken/bad.go": "package broken\n\nfunc {\n",
	})

	report, err := New(WithConfig(config.DefaultConfig())).Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "bad.go")
	assert.NotEmpty(t, report.Diagnostics)
}

func TestAnalyze_Cancelled(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithConfig(config.DefaultConfig())).Analyze(ctx, []string{dir}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_MissingPath(t *testing.T) {
	t.Parallel()
	_, err := New(WithConfig(config.DefaultConfig())).Analyze(context.Background(),
		[]string{filepath.Join(t.TempDir(), "missing")}, Options{})
	assert.Error(t, err)
}

func TestAnalyze_CustomRules(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	s := New(WithConfig(config.DefaultConfig()), WithRules(header.New()))
	ids := make([]string, 0)
	for _, d := range s.Descriptors() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{header.ID}, ids)

	report, err := s.Analyze(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Diagnostics, "file-header is off by default")
	assert.Equal(t, models.SeverityNone, report.MaxSeverity())
}
