package header

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/analyzer"
)

func TestMatches(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		src    string
		header string
		regex  bool
		want   bool
	}{
		{"empty header", "package a\n", "", false, true},
		{"prefix", "// Copyright Acme\npackage a\n", "// Copyright Acme", false, true},
		{"crlf", "// Copyright Acme\r\n// All rights reserved\r\npackage a\r\n", "// Copyright Acme\n// All rights reserved", false, true},
		{"bom", "\xef\xbb\xbf// Copyright Acme\n", "// Copyright Acme", false, true},
		{"missing", "package a\n", "// Copyright Acme", false, false},
		{"not at start", "\n// Copyright Acme\n", "// Copyright Acme", false, false},
		{"regex", "// Copyright 2024 Acme\n", `// Copyright \d{4} Acme`, true, true},
		{"regex anchored", "package a // Copyright 2024 Acme\n", `// Copyright \d{4}`, true, false},
		{"regex alternation anchored", "x\n// B\n", `// A|// B`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Matches([]byte(tt.src), tt.header, tt.regex)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_InvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := Matches([]byte("package a\n"), "// (unclosed", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))

	_, err = Matches([]byte("package a\n"), "// (unclosed", false)
	assert.NoError(t, err, "plain mode never compiles the header")
}

func TestRule(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, "package a\n")

	assert.Empty(t, testutil.Run(t, New(), prog, nil), "off by default")

	cfg := testutil.Config(ID, map[string]any{"header": "// Copyright Acme"})
	diags := testutil.Run(t, New(), prog, cfg)
	require.Len(t, diags, 1)
	assert.Equal(t, "Add or update the header of this file.", diags[0].Message)
	assert.Equal(t, 1, diags[0].Location.Line)
	assert.Equal(t, 1, diags[0].Location.Column)

	cfg = testutil.Config(ID, map[string]any{"header": "package"})
	assert.Empty(t, testutil.Run(t, New(), prog, cfg))
}

func TestRule_InvalidPatternIsARuleError(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, "package a\n")
	cfg := testutil.Config(ID, map[string]any{"header": "(", "regex": true})

	_, err := analyzer.RunRule(context.Background(), New(), prog, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPattern)
	var ruleErr *analyzer.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ID, ruleErr.Rule)
}
