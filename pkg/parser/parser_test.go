package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"src/Main.java", LangJava},
		{"Program.cs", LangCSharp},
		{"PROGRAM.CS", LangCSharp},
		{"script.py", LangUnknown},
		{"Makefile", LangUnknown},
		{"Designer.cs.bak", LangUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := DetectLanguage(tt.path); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %v, want %v", tt.path, got, tt.want)
			}
			assert.Equal(t, tt.want != LangUnknown, IsSupported(tt.path))
		})
	}
}

func TestGrammar(t *testing.T) {
	t.Parallel()
	for _, lang := range []Language{LangJava, LangCSharp} {
		g, err := Grammar(lang)
		require.NoError(t, err, lang)
		assert.NotNil(t, g, lang)
	}
	for _, lang := range []Language{LangGo, LangUnknown} {
		_, err := Grammar(lang)
		assert.ErrorIs(t, err, ErrNoGrammar, lang)
	}
}

func TestParser_Parse(t *testing.T) {
	t.Parallel()
	p := New()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte("class Main { void run() {} }"), LangJava)
	require.NoError(t, err)
	root := tree.RootNode()
	assert.Equal(t, "program", root.Type())
	assert.False(t, root.HasError())

	// the parser is reused across grammars
	tree, err = p.Parse(context.Background(), []byte("class C { void M() {} }"), LangCSharp)
	require.NoError(t, err)
	assert.Equal(t, "compilation_unit", tree.RootNode().Type())

	_, err = p.Parse(context.Background(), []byte("package a"), LangGo)
	assert.ErrorIs(t, err, ErrNoGrammar)
}
