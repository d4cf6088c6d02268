// Package testutil loads source snippets into analysis programs and writes
// fixture trees for tests.
package testutil

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/vigil/pkg/analyzer"
	"github.com/panbanda/vigil/pkg/ast"
	"github.com/panbanda/vigil/pkg/ast/goast"
	"github.com/panbanda/vigil/pkg/ast/treesitter"
	"github.com/panbanda/vigil/pkg/config"
	"github.com/panbanda/vigil/pkg/models"
)

// Go parses and type-checks src as the single file a.go.
func Go(t *testing.T, src string) *analyzer.Program {
	t.Helper()
	pkg, err := goast.LoadSources(context.Background(), []goast.Source{{Path: "a.go", Content: []byte(src)}})
	if err != nil {
		t.Fatalf("LoadSources error: %v", err)
	}
	return &analyzer.Program{Unit: pkg.Unit, Semantic: pkg.Semantic, Flow: pkg.Flow}
}

// CSharp parses src as Program.cs.
func CSharp(t *testing.T, src string) *analyzer.Program {
	t.Helper()
	return treeSitter(t, "Program.cs", src)
}

// Java parses src as Main.java.
func Java(t *testing.T, src string) *analyzer.Program {
	t.Helper()
	return treeSitter(t, "Main.java", src)
}

func treeSitter(t *testing.T, path, src string) *analyzer.Program {
	t.Helper()
	unit, sem, err := treesitter.Load(context.Background(), path, []byte(src))
	if err != nil {
		t.Fatalf("treesitter.Load(%s) error: %v", path, err)
	}
	return &analyzer.Program{Unit: unit, Semantic: sem}
}

// Root returns the root node of the program's only file.
func Root(t *testing.T, prog *analyzer.Program) *ast.Node {
	t.Helper()
	if len(prog.Unit.Files) != 1 {
		t.Fatalf("expected one file, got %d", len(prog.Unit.Files))
	}
	return prog.Unit.Files[0].Root
}

// Find returns the nth node (0-based, preorder) of the given kind.
func Find(root *ast.Node, kind ast.Kind, nth int) *ast.Node {
	for n := range root.Preorder() {
		if n.Kind == kind {
			if nth == 0 {
				return n
			}
			nth--
		}
	}
	return nil
}

// Run applies rule to prog. A nil cfg uses defaults; params are set on the
// default config as rules.<id>.params.
func Run(t *testing.T, rule analyzer.Rule, prog *analyzer.Program, cfg *config.Config) []models.Diagnostic {
	t.Helper()
	diags, err := analyzer.RunRule(context.Background(), rule, prog, cfg)
	if err != nil {
		t.Fatalf("RunRule error: %v", err)
	}
	return diags
}

// Config returns the default config with one rule enabled and its params set.
func Config(id string, params map[string]any) *config.Config {
	on := true
	cfg := config.DefaultConfig()
	cfg.Rules[id] = config.RuleConfig{Enabled: &on, Params: params}
	return cfg
}

// Only filters diagnostics by rule ID.
func Only(diags []models.Diagnostic, id string) []models.Diagnostic {
	var out []models.Diagnostic
	for _, d := range diags {
		if d.Rule == id {
			out = append(out, d)
		}
	}
	return out
}

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// ListFiles returns all files in a directory recursively.
func ListFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error: %v", root, err)
	}
	return files
}
