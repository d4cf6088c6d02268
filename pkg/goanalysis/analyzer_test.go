package goanalysis_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/analysis/analysistest"

	. "github.com/panbanda/vigil/pkg/goanalysis"
)

func TestAnalyzer(t *testing.T) {
	t.Parallel()

	testdata := analysistest.TestData()

	tests := []struct {
		name    string
		dir     string
		options Option
	}{
		{
			name: "Default",
			dir:  "./a",
		},
		{
			name:    "Header",
			dir:     "./header",
			options: Options{WithConfig(filepath.Join(testdata, "header.toml")), WithRules("file-header")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			analysistest.Run(t, testdata, New(tt.options), tt.dir)
		})
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	a := New()
	if err := a.Flags.Set("rule", "nesting-depth, self-assignment"); err != nil {
		t.Fatalf("Set(rule) error: %v", err)
	}
	assert.Equal(t, "nesting-depth,self-assignment", a.Flags.Lookup("rule").Value.String())
	assert.NotNil(t, a.Flags.Lookup("config"))
	assert.NotNil(t, a.Flags.Lookup("generated"))
}

func TestOptions_LogValue(t *testing.T) {
	t.Parallel()

	opts := Options{WithConfig("vigil.toml"), WithRules("a", "b"), WithGenerated(true), nil}
	got := opts.LogValue().String()
	assert.Contains(t, got, "config=vigil.toml")
	assert.Contains(t, got, "generated=true")
}
