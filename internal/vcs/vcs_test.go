package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitFiles writes files and commits them.
func commitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("update", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func initRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo, dir
}

func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRepository))
}

func TestOpen_FromSubdirectory(t *testing.T) {
	repo, dir := initRepo(t)
	commitFiles(t, repo, dir, map[string]string{"pkg/a.go": "package pkg\n"})

	r, err := Open(filepath.Join(dir, "pkg"))
	require.NoError(t, err)
	assert.Equal(t, dir, r.Root())
}

func TestChangedSince(t *testing.T) {
	repo, dir := initRepo(t)
	commitFiles(t, repo, dir, map[string]string{
		"a.go":      "package a\n",
		"b.go":      "package a\n",
		"Main.java": "class Main {}\n",
	})
	commitFiles(t, repo, dir, map[string]string{"b.go": "package a\n\nvar x = 1\n"})

	// uncommitted edit and a new file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Main.java"), []byte("class Main { int x; }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("package a\n"), 0o644))

	r, err := Open(dir)
	require.NoError(t, err)

	changed, err := r.ChangedSince("HEAD~1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "Main.java"),
		filepath.Join(dir, "b.go"),
		filepath.Join(dir, "new.go"),
	}, changed)

	changed, err = r.ChangedSince("HEAD")
	require.NoError(t, err)
	assert.NotContains(t, changed, filepath.Join(dir, "b.go"), "committed changes before HEAD are not new")
	assert.NotContains(t, changed, filepath.Join(dir, "a.go"))
}

func TestChangedSince_UnknownRef(t *testing.T) {
	repo, dir := initRepo(t)
	commitFiles(t, repo, dir, map[string]string{"a.go": "package a\n"})

	r, err := Open(dir)
	require.NoError(t, err)
	_, err = r.ChangedSince("no-such-branch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-branch")
}
