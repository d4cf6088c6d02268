// Package parser detects source languages and wraps the tree-sitter
// grammars used for C# and Java. Go is detected here but parsed with
// go/parser.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"
)

// Language is a source language vigil can analyze.
type Language string

const (
	LangGo      Language = "go"
	LangJava    Language = "java"
	LangCSharp  Language = "csharp"
	LangUnknown Language = "unknown"
)

// ErrNoGrammar is returned for languages without a tree-sitter grammar.
var ErrNoGrammar = errors.New("no tree-sitter grammar")

var extensions = map[string]Language{
	".go":   LangGo,
	".java": LangJava,
	".cs":   LangCSharp,
}

// DetectLanguage maps a file path to its language by extension.
func DetectLanguage(path string) Language {
	if lang, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangUnknown
}

// IsSupported reports whether files at path can be analyzed.
func IsSupported(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// Grammar returns the tree-sitter grammar of lang.
func Grammar(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJava:
		return java.GetLanguage(), nil
	case LangCSharp:
		return csharp.GetLanguage(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoGrammar, lang)
}

// Parser is a reusable tree-sitter parser. It is not safe for concurrent
// use.
type Parser struct {
	ts *sitter.Parser
}

func New() *Parser {
	return &Parser{ts: sitter.NewParser()}
}

// Parse parses source as lang. The tree is owned by the caller.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	grammar, err := Grammar(lang)
	if err != nil {
		return nil, err
	}
	p.ts.SetLanguage(grammar)
	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	return tree, nil
}

func (p *Parser) Close() {
	p.ts.Close()
}
