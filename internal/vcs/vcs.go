// Package vcs answers which files changed in a git repository, so a run
// can report only on new code.
package vcs

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned when no repository contains the path.
var ErrNotRepository = errors.New("not inside a git repository")

// Repo is an open repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, looking in parent
// directories for .git.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
	}
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree's absolute path.
func (r *Repo) Root() string { return r.root }

// ChangedSince returns the absolute paths of files that differ between ref
// and the working tree: files changed in commits after ref plus staged,
// modified and untracked files. Deleted files are included; callers
// matching diagnostics against the list never see them.
func (r *Repo) ChangedSince(ref string) ([]string, error) {
	base, err := r.tree(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	head, err := r.tree("HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	changes, err := object.DiffTree(base, head)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, c := range changes {
		for _, name := range []string{c.From.Name, c.To.Name} {
			if name != "" {
				seen[name] = true
			}
		}
	}

	dirty, err := r.dirty()
	if err != nil {
		return nil, err
	}
	for _, name := range dirty {
		seen[name] = true
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, filepath.Join(r.root, filepath.FromSlash(name)))
	}
	slices.Sort(out)
	return out, nil
}

func (r *Repo) tree(ref string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

// dirty lists worktree paths with staged, unstaged or untracked changes.
func (r *Repo) dirty() ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	var out []string
	for name, s := range status {
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			out = append(out, name)
		}
	}
	return out, nil
}
