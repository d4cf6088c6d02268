package scanner

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/panbanda/vigil/internal/testutil"
	"github.com/panbanda/vigil/pkg/config"
)

func relative(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel(%s) error: %v", f, err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	slices.Sort(out)
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"main.go":             "package main\n",
		"util/helper.go":      "package util\n",
		"src/Program.cs":      "class C {}\n",
		"src/Main.java":       "class Main {}\n",
		"util/helper.py":      "# python\n",
		"internal/core.rs":    "fn main() {}\n",
		"vendor/dep/dep.go":   "package dep\n",
		"obj/Debug/Gen.cs":    "class G {}\n",
		"api/types.pb.go":     "package api\n",
		"ui/Form.Designer.cs": "class F {}\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"main.go", "src/Main.java", "src/Program.cs", "util/helper.go"}
	if got := relative(t, tmpDir, result); !slices.Equal(got, want) {
		t.Errorf("ScanDir() = %v, want %v", got, want)
	}
}

func TestScanDirExcludesExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"main.go":      "package main\n",
		"Legacy.java":  "class Legacy {}\n",
		"sub/Other.cs": "class O {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Extensions = []string{".java"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"main.go", "sub/Other.cs"}
	if got := relative(t, tmpDir, result); !slices.Equal(got, want) {
		t.Errorf("ScanDir() = %v, want %v", got, want)
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":     "skipme\n*_mock.go\n",
		"main.go":        "package main\n",
		"main_mock.go":   "package main\n",
		"skipme/skip.go": "package skipme\n",
		"src/app.go":     "package src\n",
	})

	tests := []struct {
		name      string
		gitignore bool
		want      []string
	}{
		{"enabled", true, []string{"main.go", "src/app.go"}},
		{"disabled", false, []string{"main.go", "main_mock.go", "skipme/skip.go", "src/app.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Exclude.Gitignore = tt.gitignore

			result, err := NewScanner(cfg).ScanDir(tmpDir)
			if err != nil {
				t.Fatalf("ScanDir() error: %v", err)
			}
			if got := relative(t, tmpDir, result); !slices.Equal(got, tt.want) {
				t.Errorf("ScanDir() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanDirGitignoreFromSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":           "/svc/generated/\n",
		"svc/main.go":          "package main\n",
		"svc/generated/gen.go": "package generated\n",
	})

	root := filepath.Join(tmpDir, "svc")
	result, err := NewScanner(nil).ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"main.go"}
	if got := relative(t, root, result); !slices.Equal(got, want) {
		t.Errorf("ScanDir() = %v, want %v", got, want)
	}
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"a/one.go":       "package a\n",
		"b/Two.java":     "class Two {}\n",
		"b/notes.txt":    "notes\n",
		"vendor/keep.go": "package keep\n",
	})

	s := NewScanner(nil)
	result, err := s.Scan([]string{
		filepath.Join(tmpDir, "a"),
		filepath.Join(tmpDir, "a", "one.go"),
		filepath.Join(tmpDir, "b"),
		filepath.Join(tmpDir, "b", "notes.txt"),
		filepath.Join(tmpDir, "vendor", "keep.go"),
	})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	want := []string{"a/one.go", "b/Two.java", "vendor/keep.go"}
	if got := relative(t, tmpDir, result); !slices.Equal(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}

	if _, err := s.Scan([]string{filepath.Join(tmpDir, "missing")}); err == nil {
		t.Error("Scan() of a missing path should fail")
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	result, err := NewScanner(nil).ScanDir(t.TempDir())
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir returned %d files, want 0", len(result))
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"main.go":     "package main\n",
		"types.pb.go": "package main\n",
		"README.md":   "# readme\n",
	})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"go file", "main.go", true},
		{"excluded pattern", "types.pb.go", false},
		{"unsupported", "README.md", false},
		{"directory", ".", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewScanner(nil).ScanFile(filepath.Join(tmpDir, tt.path))
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if _, err := NewScanner(nil).ScanFile(filepath.Join(tmpDir, "missing.go")); err == nil {
		t.Error("ScanFile() on a missing file should fail")
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"same path", tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "file.go"), true},
		{"path outside root", "/some/other/path", false},
		{"parent path", filepath.Dir(tmpDir), false},
		{"similar prefix but different dir", tmpDir + "2/file.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWithinRoot(tt.path, tmpDir); got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tmpDir, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if result := findGitRoot(tmpDir); result != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	subDir := filepath.Join(tmpDir, "src", "pkg")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestScanDirWithSymlinkDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(tmpDir, "real", "file.go"), "package real\n")

	outsideDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(outsideDir, "outside.go"), "package outside\n")
	if err := os.Symlink(outsideDir, filepath.Join(tmpDir, "linked")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	for _, f := range result {
		if filepath.Base(f) == "outside.go" {
			t.Error("ScanDir() should not follow symlinks outside the root directory")
		}
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Symlink("/nonexistent/path/file.go", filepath.Join(tmpDir, "dangling.go")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	testutil.WriteFile(t, filepath.Join(tmpDir, "real.go"), "package main\n")

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %d", len(result))
	}
}
