package vcs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo, wt: wt}
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	p := filepath.Join(r.dir, filepath.FromSlash(name))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(r.t, os.WriteFile(p, []byte(content), 0o644))
}

func (r *testRepo) add(names ...string) {
	r.t.Helper()
	for _, name := range names {
		_, err := r.wt.Add(name)
		require.NoError(r.t, err)
	}
}

func (r *testRepo) commit(msg string) plumbing.Hash {
	r.t.Helper()
	hash, err := r.wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "ptree", Email: "ptree@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(r.t, err)
	return hash
}

func TestOpenStatus(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.txt", "one")
	r.write("b.txt", "two")
	r.add("a.txt", "b.txt")
	r.commit("initial")

	r.write("a.txt", "changed")
	r.write("c.txt", "untracked")
	r.write("sub/d.txt", "staged")
	r.add("sub/d.txt")

	st, err := OpenStatus(r.dir)
	require.NoError(t, err)

	tests := []struct {
		path   string
		symbol string
		ok     bool
	}{
		{"a.txt", "M", true},
		{"b.txt", "", false},
		{"c.txt", "?", true},
		{"sub/d.txt", "A", true},
	}
	for _, tt := range tests {
		symbol, ok := st.StatusOf(filepath.Join(r.dir, filepath.FromSlash(tt.path)))
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.symbol, symbol, tt.path)
	}
	assert.Equal(t, 3, st.Len())

	_, ok := st.StatusOf(filepath.Join(t.TempDir(), "a.txt"))
	assert.False(t, ok, "paths outside the worktree have no status")
}

func TestOpenStatusFromSubdirectory(t *testing.T) {
	r := newTestRepo(t)
	r.write("sub/x.txt", "x")
	r.add("sub/x.txt")
	r.commit("initial")
	r.write("sub/x.txt", "y")

	st, err := OpenStatus(filepath.Join(r.dir, "sub"))
	require.NoError(t, err)
	symbol, ok := st.StatusOf(filepath.Join(r.dir, "sub", "x.txt"))
	assert.True(t, ok)
	assert.Equal(t, "M", symbol)
}

func TestOpenStatusNotRepository(t *testing.T) {
	_, err := OpenStatus(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func diffFixture(t *testing.T) (*testRepo, plumbing.Hash, plumbing.Hash) {
	t.Helper()
	r := newTestRepo(t)
	r.write("old.txt", "some content that will be moved around")
	r.write("keep.txt", "v1")
	r.write("gone.txt", "bye")
	r.write("docs/readme.md", "docs")
	r.add("old.txt", "keep.txt", "gone.txt", "docs/readme.md")
	first := r.commit("first")

	_, err := r.wt.Remove("old.txt")
	require.NoError(t, err)
	_, err = r.wt.Remove("gone.txt")
	require.NoError(t, err)
	r.write("new.txt", "some content that will be moved around")
	r.write("keep.txt", "v2")
	r.write("docs/guide.md", "guide")
	r.add("new.txt", "keep.txt", "docs/guide.md")
	second := r.commit("second")
	return r, first, second
}

func TestDiff(t *testing.T) {
	r, first, second := diffFixture(t)

	changes, err := Diff(context.Background(), DiffOptions{Repo: r.dir, RevA: first.String(), RevB: second.String()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Change{
		{Status: Deleted, Path: "old.txt"},
		{Status: Added, Path: "new.txt"},
		{Status: Modified, Path: "keep.txt"},
		{Status: Deleted, Path: "gone.txt"},
		{Status: Added, Path: "docs/guide.md"},
	}, changes)
}

func TestDiffSubpath(t *testing.T) {
	r, first, _ := diffFixture(t)

	changes, err := Diff(context.Background(), DiffOptions{Repo: r.dir, RevA: first.String(), RevB: "HEAD", Subpath: "docs/"})
	require.NoError(t, err)
	assert.Equal(t, []Change{{Status: Added, Path: "docs/guide.md"}}, changes)
}

func TestDiffBadRevision(t *testing.T) {
	r, first, _ := diffFixture(t)
	_, err := Diff(context.Background(), DiffOptions{Repo: r.dir, RevA: first.String(), RevB: "no-such-branch"})
	assert.Error(t, err)
}

func TestWriteDiff(t *testing.T) {
	changes := []Change{
		{Status: Added, Path: "a"},
		{Status: Deleted, Path: "b"},
		{Status: Modified, Path: "c"},
	}

	var plain bytes.Buffer
	require.NoError(t, WriteDiffPlain(&plain, "v1", "v2", changes, false))
	assert.Equal(t, "diff v1 .. v2\n+ a\n- b\n~ c\n", plain.String())

	var js bytes.Buffer
	require.NoError(t, WriteDiffJSON(&js, changes[:1]))
	assert.Equal(t, `{"status":"added","path":"a"}`+"\n", js.String())
}
