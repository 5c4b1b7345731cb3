package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffCommand(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(msg string, files map[string]string) string {
		for name, content := range files {
			require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
			_, err := wt.Add(name)
			require.NoError(t, err)
		}
		hash, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "ptree", Email: "ptree@example.com", When: time.Unix(1700000000, 0)},
		})
		require.NoError(t, err)
		return hash.String()
	}
	first := commit("first", map[string]string{"a.txt": "a"})
	second := commit("second", map[string]string{"a.txt": "b", "b.txt": "new"})

	out, err := execute(t, "diff", "--repo", root, "--rev-a", first, "--rev-b", second, "--color", "never")
	require.NoError(t, err)
	assert.Contains(t, out, "diff "+first+" .. "+second+"\n")
	assert.Contains(t, out, "~ a.txt\n")
	assert.Contains(t, out, "+ b.txt\n")

	out, err = execute(t, "diff", "--repo", root, "--rev-a", first, "--rev-b", second, "--format", "json", "--path", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"added","path":"b.txt"}`+"\n", out)
}

func TestDiffCommandRequiresRevisions(t *testing.T) {
	_, err := execute(t, "diff", "--rev-a", "HEAD")
	assert.Error(t, err)

	_, err = execute(t, "diff", "--rev-a", "HEAD", "--rev-b", "HEAD", "--format", "yaml")
	assert.Error(t, err)
}
