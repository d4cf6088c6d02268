package analyzer

import (
	"cmp"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"

	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/ast/goast"
	"github.com/panbanda/vigil/pkg/ast/treesitter"
	vparser "github.com/panbanda/vigil/pkg/parser"
)

// Source is a group of files analyzed as one unit.
type Source struct {
	// Key identifies the unit: "dir (package)" for Go, the path otherwise.
	Key      string
	Language ast.LanguageID
	Paths    []string
}

// Group partitions paths into units. Go files form one unit per directory
// and package clause; every C# or Java file is a unit of its own.
// Unsupported files are dropped. The result is sorted by key.
func Group(paths []string) []Source {
	goUnits := map[string]*Source{}
	var out []Source
	for _, path := range paths {
		switch vparser.DetectLanguage(path) {
		case vparser.LangGo:
			key := filepath.Dir(path) + " (" + packageName(path) + ")"
			src, ok := goUnits[key]
			if !ok {
				src = &Source{Key: key, Language: ast.LangGo}
				goUnits[key] = src
			}
			src.Paths = append(src.Paths, path)
		case vparser.LangCSharp:
			out = append(out, Source{Key: path, Language: ast.LangCSharp, Paths: []string{path}})
		case vparser.LangJava:
			out = append(out, Source{Key: path, Language: ast.LangJava, Paths: []string{path}})
		}
	}
	for _, src := range goUnits {
		slices.Sort(src.Paths)
		out = append(out, *src)
	}
	slices.SortFunc(out, func(a, b Source) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

// packageName reads only the package clause; unreadable files group under "".
func packageName(path string) string {
	f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.PackageClauseOnly)
	if err != nil || f.Name == nil {
		return ""
	}
	return f.Name.Name
}

// Load parses a unit and attaches its backend's semantic and flow facilities.
func Load(ctx context.Context, src Source) (*Program, error) {
	switch src.Language {
	case ast.LangGo:
		pkg, err := goast.Load(ctx, src.Paths)
		if err != nil {
			return nil, err
		}
		return &Program{Unit: pkg.Unit, Semantic: pkg.Semantic, Flow: pkg.Flow}, nil

	case ast.LangCSharp, ast.LangJava:
		if len(src.Paths) != 1 {
			return nil, fmt.Errorf("%s: expected one file per unit, got %d", src.Key, len(src.Paths))
		}
		content, err := os.ReadFile(src.Paths[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		unit, sem, err := treesitter.Load(ctx, src.Paths[0], content)
		if err != nil {
			return nil, err
		}
		return &Program{Unit: unit, Semantic: sem}, nil
	}
	return nil, fmt.Errorf("%w: %s", ast.ErrUnsupportedLanguage, src.Language)
}
