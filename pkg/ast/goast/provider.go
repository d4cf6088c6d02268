// Package goast lowers go/ast trees into the ast facade, answers symbol
// questions from go/types, and builds control-flow graphs with
// golang.org/x/tools/go/cfg.
package goast

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"iter"
	"os"

	"github.com/panbanda/vigil/pkg/ast"
)

// Package is one type-checked Go package lowered into a unit.
type Package struct {
	Fset  *token.FileSet
	Files []*goast.File
	Info  *types.Info
	Types *types.Package

	Unit     *ast.Unit
	Semantic *Semantic
	Flow     *FlowBuilder

	index map[goast.Node]*ast.Node
}

// Source is one file's path and content.
type Source struct {
	Path    string
	Content []byte
}

// Load reads, parses and type-checks the given files as one package.
func Load(ctx context.Context, paths []string) (*Package, error) {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		sources = append(sources, Source{Path: path, Content: src})
	}
	return LoadSources(ctx, sources)
}

// LoadSources parses and type-checks in-memory files as one package. Type
// errors (typically unresolvable imports) are tolerated: the semantic model
// simply knows less.
func LoadSources(ctx context.Context, sources []Source) (*Package, error) {
	fset := token.NewFileSet()
	files := make([]*goast.File, 0, len(sources))
	contents := make(map[*goast.File][]byte, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := parser.ParseFile(fset, src.Path, src.Content, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src.Path, err)
		}
		files = append(files, f)
		contents[f] = src.Content
	}

	info := NewInfo()
	conf := types.Config{
		Importer: importer.Default(),
		Error:    func(error) {},
	}
	var name string
	if len(files) > 0 {
		name = files[0].Name.Name
	}
	tpkg, _ := conf.Check(name, fset, files, info)

	return New(fset, files, contents, info, tpkg), nil
}

// NewInfo allocates the types.Info maps the semantic model reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types: make(map[goast.Expr]types.TypeAndValue),
		Defs:  make(map[*goast.Ident]types.Object),
		Uses:  make(map[*goast.Ident]types.Object),
	}
}

// New lowers already type-checked files. It is the entry point for
// go/analysis passes, which own parsing and type checking.
func New(fset *token.FileSet, files []*goast.File, sources map[*goast.File][]byte, info *types.Info, tpkg *types.Package) *Package {
	pkg := &Package{
		Fset:  fset,
		Files: files,
		Info:  info,
		Types: tpkg,
		Unit:  ast.NewUnit(),
		index: make(map[goast.Node]*ast.Node),
	}
	for _, f := range files {
		path := fset.Position(f.Pos()).Filename
		file := pkg.Unit.NewFile(path, Go, sources[f])
		file.SetRoot(lower(fset, file, f, pkg.index))
	}
	pkg.Semantic = newSemantic(pkg)
	pkg.Flow = &FlowBuilder{pkg: pkg}
	return pkg
}

// Node returns the lowered node for a go/ast node.
func (p *Package) Node(n goast.Node) *ast.Node {
	return p.index[n]
}

// nodes yields every lowered node of the given kind across the package.
func (p *Package) nodes(kind ast.Kind) iter.Seq[*ast.Node] {
	return func(yield func(*ast.Node) bool) {
		for _, f := range p.Unit.Files {
			for n := range f.Root.Preorder() {
				if n.Kind == kind && !yield(n) {
					return
				}
			}
		}
	}
}
