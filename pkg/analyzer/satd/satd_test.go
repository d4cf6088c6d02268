package satd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

func TestComments(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		lang ast.LanguageID
		src  string
		want []string
	}{
		{"line", ast.LangGo, "x := 1 // one\ny := 2\n", []string{"// one"}},
		{"block", ast.LangGo, "/* a\nb */ x", []string{"/* a\nb */"}},
		{"unterminated block", ast.LangGo, "x /* open", []string{"/* open"}},
		{"string", ast.LangGo, `s := "http://x" // real`, []string{"// real"}},
		{"escaped quote", ast.LangGo, `s := "a\"//b" // c`, []string{"// c"}},
		{"go raw string", ast.LangGo, "s := `//x\n` // y", []string{"// y"}},
		{"rune", ast.LangGo, `r := '"' // z`, []string{"// z"}},
		{"java text block", ast.LangJava, "String s = \"\"\"\n// no\n\"\"\"; // yes", []string{"// yes"}},
		{"csharp verbatim", ast.LangCSharp, `var s = @"a""//b"; // c`, []string{"// c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, c := range Comments([]byte(tt.src), tt.lang) {
				got = append(got, tt.src[c.Start:c.End])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func enabled(ids ...string) *config.Config {
	on := true
	cfg := config.DefaultConfig()
	for _, id := range ids {
		cfg.Rules[id] = config.RuleConfig{Enabled: &on}
	}
	return cfg
}

const goSource = `package a

// TODO: split this up
func f() string {
	s := "TODO in a string"
	/*
	 * fixme later, todo too
	 */
	return s // todos are plural
}
`

func TestRule_Go(t *testing.T) {
	t.Parallel()
	prog := testutil.Go(t, goSource)
	assert.Empty(t, testutil.Run(t, New(), prog, nil), "off by default")

	diags := testutil.Run(t, New(), prog, enabled(TodoID, FixmeID))
	todos := testutil.Only(diags, TodoID)
	require.Len(t, todos, 2)
	assert.Equal(t, 3, todos[0].Location.Line)
	assert.Equal(t, 4, todos[0].Location.Column)
	assert.Equal(t, 8, todos[0].Location.EndColumn)
	assert.Equal(t, "Complete the task associated to this 'TODO' comment.", todos[0].Message)
	assert.Equal(t, models.SeverityInfo, todos[0].Severity)
	assert.Equal(t, 7, todos[1].Location.Line)

	fixmes := testutil.Only(diags, FixmeID)
	require.Len(t, fixmes, 1)
	assert.Equal(t, 7, fixmes[0].Location.Line)
	assert.Equal(t, models.SeverityMajor, fixmes[0].Severity)
}

func TestRule_OnlyEnabledMarkers(t *testing.T) {
	t.Parallel()
	diags := testutil.Run(t, New(), testutil.Go(t, goSource), enabled(FixmeID))
	require.Len(t, diags, 1)
	assert.Equal(t, FixmeID, diags[0].Rule)
}

func TestRule_CSharp(t *testing.T) {
	t.Parallel()
	diags := testutil.Run(t, New(), testutil.CSharp(t, `class C {
    // FIXME: wrong rounding
    string s = "// TODO";
}
`), enabled(TodoID, FixmeID))
	require.Len(t, diags, 1)
	assert.Equal(t, FixmeID, diags[0].Rule)
	assert.Equal(t, 2, diags[0].Location.Line)
	assert.Equal(t, 8, diags[0].Location.Column)
}
