package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TFMV/ptree/internal/walk"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "file.txt"), []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), make([]byte, 2<<20), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("h"), 0o644))
	return root
}

func TestPlainTree(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "--color", "never", "--quiet", root)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, root+"\n"), out)
	assert.Contains(t, out, "├── a (10 B)\n")
	assert.Contains(t, out, "│   ├── file.txt (10 B)\n")
	assert.Contains(t, out, "│   └── sub (0 B)\n")
	assert.Contains(t, out, "└── big.bin (2.0 MiB)\n")
	assert.NotContains(t, out, ".hidden")
	assert.Contains(t, out, "2 directories, 2 files")
}

func TestHiddenAndDirsFirst(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "--color", "never", "-q", "--hidden", "--dirs-first", "--format", "ndjson", root)
	require.NoError(t, err)

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var e walk.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e.Depth == 1 {
			names = append(names, e.Name)
		}
	}
	assert.Equal(t, []string{"a", ".hidden", "big.bin"}, names)
}

func TestSizeFilter(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "-q", "--format", "ndjson", "--filter-size", ">=1MB", "--type", "file", root)
	require.NoError(t, err)

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var e walk.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e.Depth > 0 {
			files = append(files, e.Name)
		}
	}
	assert.Equal(t, []string{"big.bin"}, files)
}

func TestMaxDepth(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "-q", "--format", "csv", "--max-depth", "2", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)
	assert.NotContains(t, out, "file.txt")
}

func TestInvalidFlags(t *testing.T) {
	root := fixture(t)
	tests := [][]string{
		{"--format", "xml", root},
		{"--encoding", "ebcdic", root},
		{"--color", "sometimes", root},
		{"--filter-size", ">=lots", root},
		{"--filter-mtime", "3y", root},
		{"--sort", "size", root},
		{"--pattern-syntax", "regex", "--include", "(", root},
		{"--max-depth", "-1", root},
	}
	for _, args := range tests {
		_, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestOutputFile(t *testing.T) {
	root := fixture(t)
	target := filepath.Join(t.TempDir(), "tree.json")
	out, err := execute(t, "-q", "--format", "json", "--output", target, root)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var entries []walk.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 5)
}

func TestEncoding(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "-q", "--format", "csv", "--encoding", "utf8bom", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\xef\xbb\xbfname,path,"), out)
}

func TestUnreadableRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	out, err := execute(t, "-q", "--format", "ndjson", missing)
	assert.ErrorIs(t, err, walk.ErrRootUnreadable)
	assert.Contains(t, out, `"error":`)
}

func TestConfigFile(t *testing.T) {
	root := fixture(t)
	cfg := filepath.Join(t.TempDir(), "ptree.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format: ndjson\nhidden: true\n"), 0o644))

	out, err := execute(t, "-q", "--config", cfg, root)
	require.NoError(t, err)
	assert.Contains(t, out, `"name":".hidden"`)
}

func TestEnvironment(t *testing.T) {
	root := fixture(t)
	t.Setenv("PTREE_FORMAT", "csv")
	out, err := execute(t, "-q", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "name,path,depth,kind,size,mtime,perm,target,loop,error,status\n"), out)
}

func TestBuildOptionsFromFlags(t *testing.T) {
	v := viper.New()
	cmd := newRootCommand(v)
	require.NoError(t, cmd.ParseFlags([]string{
		"--max-depth", "3", "--follow-symlinks", "--sort", "none",
		"--include", "*.go,*.md", "--match-mode", "path", "--jobs", "8", "--gitignore",
	}))

	opts, err := buildOptions(v, ".", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.True(t, opts.FollowSymlinks)
	assert.Equal(t, walk.SortNone, opts.Sort)
	assert.Equal(t, []string{"*.go", "*.md"}, opts.Includes)
	assert.Equal(t, walk.MatchPath, opts.MatchMode)
	assert.Equal(t, 8, opts.Workers)
	assert.True(t, opts.Gitignore)
}

func TestUseColor(t *testing.T) {
	on, err := useColor("always", true)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = useColor("never", false)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = useColor("auto", true)
	require.NoError(t, err)
	assert.False(t, on, "auto never colours a file")

	_, err = useColor("rainbow", false)
	assert.Error(t, err)
}

func TestGitStatus(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "tracked.txt"), []byte("v1"), 0o644))
	_, err = wt.Add("tracked.txt")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "ptree", Email: "ptree@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "tracked.txt"), []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("n"), 0o644))

	out, err := execute(t, "-q", "--color", "never", "--git-status", root)
	require.NoError(t, err)
	assert.Contains(t, out, "├── ? new.txt (1 B)\n")
	assert.Contains(t, out, "└── M tracked.txt (2 B)\n")
}
