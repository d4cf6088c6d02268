// Package treesitter lowers tree-sitter syntax trees for C# and Java into
// the ast facade.
package treesitter

import (
	"context"
	"fmt"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/parser"
)

// Provider implements ast.Provider using tree-sitter.
type Provider struct {
	parser  *parser.Parser
	grammar parser.Language
	lang    *ast.Language
}

// New creates a provider for one grammar.
func New(grammar parser.Language) (*Provider, error) {
	lang := LanguageFor(grammar)
	if lang == nil {
		return nil, fmt.Errorf("%w: %s", ast.ErrUnsupportedLanguage, grammar)
	}
	return &Provider{
		parser:  parser.New(),
		grammar: grammar,
		lang:    lang,
	}, nil
}

// LanguageFor returns the role table for a tree-sitter grammar, or nil.
func LanguageFor(grammar parser.Language) *ast.Language {
	switch grammar {
	case parser.LangCSharp:
		return CSharp
	case parser.LangJava:
		return Java
	default:
		return nil
	}
}

// Language returns the provider's role table.
func (p *Provider) Language() *ast.Language {
	return p.lang
}

// Parse parses source and lowers it into unit.
func (p *Provider) Parse(ctx context.Context, unit *ast.Unit, path string, source []byte) (*ast.File, error) {
	tree, err := p.parser.Parse(ctx, source, p.grammar)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	file := unit.NewFile(path, p.lang, source)
	file.SetRoot(lower(file, tree.RootNode()))
	return file, nil
}

// Close releases parser resources.
func (p *Provider) Close() {
	p.parser.Close()
}

// Load parses one file into its own unit with a lexical resolver.
func Load(ctx context.Context, path string, source []byte) (*ast.Unit, ast.Semantic, error) {
	p, err := New(parser.DetectLanguage(path))
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	unit := ast.NewUnit()
	if _, err := p.Parse(ctx, unit, path, source); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return unit, NewSemantic(p.lang, unit), nil
}

var _ ast.Provider = (*Provider)(nil)
