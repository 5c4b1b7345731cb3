package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ChangeStatus describes how a path differs between two revisions.
type ChangeStatus string

const (
	Added    ChangeStatus = "added"
	Deleted  ChangeStatus = "deleted"
	Modified ChangeStatus = "modified"
	Unknown  ChangeStatus = "unknown"
)

// Change is one changed path. A moved file shows up as a deletion of the
// old path and an addition of the new one.
type Change struct {
	Status ChangeStatus `json:"status"`
	Path   string       `json:"path"`
}

// DiffOptions selects the revisions to compare.
type DiffOptions struct {
	Repo    string // any path inside the repository
	RevA    string
	RevB    string
	Subpath string // slash separated, relative to the worktree root
}

// Diff lists the paths that changed between RevA and RevB.
func Diff(ctx context.Context, opts DiffOptions) ([]Change, error) {
	repo, err := git.PlainOpenWithOptions(opts.Repo, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, opts.Repo)
		}
		return nil, fmt.Errorf("error opening repository: %w", err)
	}
	treeA, err := treeAt(repo, opts.RevA)
	if err != nil {
		return nil, err
	}
	treeB, err := treeAt(repo, opts.RevB)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeContext(ctx, treeA, treeB)
	if err != nil {
		return nil, fmt.Errorf("error diffing %s..%s: %w", opts.RevA, opts.RevB, err)
	}

	sub := strings.Trim(path.Clean("/"+opts.Subpath), "/")
	out := make([]Change, 0, len(changes))
	for _, ch := range changes {
		c, err := convert(ch)
		if err != nil {
			return nil, err
		}
		if sub != "" && c.Path != sub && !strings.HasPrefix(c.Path, sub+"/") {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func treeAt(repo *git.Repository, rev string) (*object.Tree, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("error resolving revision %q: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("error reading commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("error reading tree of %s: %w", hash, err)
	}
	return tree, nil
}

func convert(ch *object.Change) (Change, error) {
	action, err := ch.Action()
	if err != nil {
		return Change{}, fmt.Errorf("error classifying change: %w", err)
	}
	c := Change{Path: ch.To.Name}
	if c.Path == "" {
		c.Path = ch.From.Name
	}
	switch action {
	case merkletrie.Insert:
		c.Status = Added
	case merkletrie.Delete:
		c.Status = Deleted
	case merkletrie.Modify:
		c.Status = Modified
	default:
		c.Status = Unknown
	}
	return c, nil
}

// WriteDiffPlain prints a header and one "<mark> <path>" line per change.
func WriteDiffPlain(w io.Writer, revA, revB string, changes []Change, useColor bool) error {
	header := color.New(color.Bold)
	marks := map[ChangeStatus]*color.Color{
		Added:   color.New(color.FgGreen),
		Deleted: color.New(color.FgRed),
	}
	other := color.New(color.FgYellow)
	for _, c := range append([]*color.Color{header, other}, marks[Added], marks[Deleted]) {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	if _, err := fmt.Fprintln(w, header.Sprintf("diff %s .. %s", revA, revB)); err != nil {
		return err
	}
	for _, c := range changes {
		mark, paint := "~", other
		switch c.Status {
		case Added:
			mark, paint = "+", marks[Added]
		case Deleted:
			mark, paint = "-", marks[Deleted]
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", paint.Sprint(mark), c.Path); err != nil {
			return err
		}
	}
	return nil
}

// WriteDiffJSON writes one {"status","path"} object per line.
func WriteDiffJSON(w io.Writer, changes []Change) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, c := range changes {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return nil
}
