// Package vcs reads git state for the tree printer: per-path status symbols
// for the working tree and the list of paths changed between two revisions.
package vcs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no repository contains the given path.
var ErrNotRepository = errors.New("vcs: not a git repository")

// Status maps paths to one-letter status symbols. It implements
// walk.StatusProvider.
type Status struct {
	root    string // canonical worktree root
	symbols map[string]string
}

// OpenStatus discovers the repository containing path and snapshots its
// worktree status. Clean files have no symbol.
func OpenStatus(path string) (*Status, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("error opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("error opening worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("error reading status: %w", err)
	}

	root, err := canonical(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	s := &Status{root: root, symbols: make(map[string]string, len(st))}
	for file, fileStatus := range st {
		if symbol := symbolFor(fileStatus); symbol != "" {
			s.symbols[file] = symbol
		}
	}
	return s, nil
}

// symbolFor prefers the worktree code and falls back to the staging code.
func symbolFor(fs *git.FileStatus) string {
	code := fs.Worktree
	if code == git.Unmodified {
		code = fs.Staging
	}
	switch code {
	case git.Unmodified:
		return ""
	case git.Untracked:
		return "?"
	}
	return string(rune(code))
}

// StatusOf returns the symbol for path, which may be absolute or relative
// to the current directory.
func (s *Status) StatusOf(path string) (string, bool) {
	p, err := canonical(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	symbol, ok := s.symbols[filepath.ToSlash(rel)]
	return symbol, ok
}

// Len returns the number of paths that carry a symbol.
func (s *Status) Len() int {
	return len(s.symbols)
}

// canonical resolves symlinks in the directory part of path only, so that a
// symlink entry is looked up under its own name.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir, name := filepath.Split(abs)
	if name == "" {
		return filepath.EvalSymlinks(abs)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return abs, nil
	}
	return filepath.Join(resolved, name), nil
}
