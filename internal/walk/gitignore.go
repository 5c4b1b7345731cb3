package walk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
)

// ignoreRules is the chain of .gitignore matchers from the scan root down to
// the directory being listed.
type ignoreRules []gitignore.IgnoreMatcher

// extend returns rules plus dir/.gitignore, if that file exists. The parent
// slice is never modified.
func (r ignoreRules) extend(dir string, logger *zap.Logger) ignoreRules {
	file := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(file); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot read .gitignore", zap.String("path", file), zap.Error(err))
		}
		return r
	}
	matcher, err := gitignore.NewGitIgnore(file)
	if err != nil {
		logger.Warn("cannot parse .gitignore", zap.String("path", file), zap.Error(err))
		return r
	}
	next := make(ignoreRules, len(r), len(r)+1)
	copy(next, r)
	return append(next, matcher)
}

// ignored reports whether any rule in the chain ignores path.
func (r ignoreRules) ignored(path string, isDir bool) bool {
	for _, m := range r {
		if m.Match(path, isDir) {
			return true
		}
	}
	return false
}
