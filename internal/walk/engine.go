package walk

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// ErrRootUnreadable is returned by Walk when the root's metadata could not
// be read at all. The root entry is still emitted, carrying the error.
var ErrRootUnreadable = errors.New("ptree: root is unreadable")

const (
	branchMid  = "│   "
	branchLast = "    "
)

// child is one listed entry of a frame.
type child struct {
	meta    *EntryMeta
	visible bool // accepted by the filter pipeline
}

// frame is one directory's pending listing.
type frame struct {
	display  string // display path of the directory
	children []child
	last     int // index of the last visible child, -1 if none
	idx      int
	prefix   string // tree prefix for the children
	depth    int    // depth of the children
	owner    *Entry // emitted entry of the directory; nil when it was filtered out
	tail     bool   // no visible entry follows this frame's children at their level
	ignores  ignoreRules
}

// Walker is the explicit-stack traversal engine. A Walker may be reused for
// several sequential walks; it is not safe for concurrent use.
type Walker struct {
	opts    *Options
	filters *Filters
	logger  *zap.Logger
	workers int
	root    string // absolute root
	display string // root as given by the caller

	rootCanon    string
	visited      map[string]struct{}
	stack        []*frame
	scratch      []byte
	stats        Stats
	warnedDepth  bool
	start        time.Time
	lastProgress time.Time
}

// New validates opts and prepares a Walker. Configuration errors are
// returned here, before any traversal starts.
func New(opts *Options) (*Walker, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: nil options", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	filters, err := NewFilters(opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(opts.LogLevel)
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", ErrInvalidOptions, opts.Root, err)
	}

	workers := ClampWorkers(opts.Workers)
	if opts.Workers > MaxWorkers {
		logger.Warn("worker count clamped", zap.Int("requested", opts.Workers), zap.Int("workers", workers))
	} else if workers > comfortWorkers() {
		logger.Warn("worker count exceeds 4x CPU count", zap.Int("workers", workers))
	}

	return &Walker{
		opts:    opts,
		filters: filters,
		logger:  logger,
		workers: workers,
		root:    root,
		display: filepath.Clean(opts.Root),
		scratch: make([]byte, godirwalk.MinimumScratchBufferSize),
	}, nil
}

// Logger returns the diagnostic logger in use.
func (w *Walker) Logger() *zap.Logger {
	return w.logger
}

func (w *Walker) reset() {
	w.visited = make(map[string]struct{})
	w.stack = w.stack[:0]
	w.stats = Stats{}
	w.warnedDepth = false
	w.start = time.Now()
	w.lastProgress = w.start
}

// Walk traverses the tree and feeds v. Per-entry and per-directory failures
// are absorbed; only visitor errors abort the walk.
func (w *Walker) Walk(v Visitor) (Stats, error) {
	w.reset()
	w.logger.Debug("starting walk",
		zap.String("root", w.root),
		zap.Int("workers", w.workers),
		zap.Int("max_depth", w.opts.MaxDepth),
		zap.Bool("follow_symlinks", w.opts.FollowSymlinks),
	)

	rootMeta := Resolve(w.root, w.rootName(), TypeUnresolved)
	if rootMeta.Err != "" {
		w.logger.Warn("root metadata error", zap.String("path", w.display), zap.String("error", rootMeta.Err))
	}
	w.rootCanon = rootMeta.Canonical
	if w.rootCanon == "" {
		if canon, err := canonicalize(w.root); err == nil {
			w.rootCanon = canon
		}
	}

	descend := rootMeta.PointsToDirectory() && w.rootCanon != "" && w.opts.MaxDepth != 1
	rootEntry := w.project(rootMeta, w.display, 0)
	if err := v.Visit(Step{Entry: rootEntry, Last: true, Descend: descend}); err != nil {
		return w.finishStats(), err
	}
	if descend {
		w.visited[w.rootCanon] = struct{}{}
		if err := w.open(w.root, w.display, "", 1, rootEntry, true, nil, v); err != nil {
			return w.finishStats(), err
		}
	}

	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]
		if top.idx >= len(top.children) {
			w.stack = w.stack[:len(w.stack)-1]
			if top.owner != nil {
				if err := v.Leave(top.owner); err != nil {
					return w.finishStats(), err
				}
			}
			continue
		}

		i := top.idx
		top.idx++
		c := top.children[i]
		display := filepath.Join(top.display, c.meta.Name)
		descend := w.decide(c.meta, top.depth)

		var entry *Entry
		prefix := top.prefix
		if c.visible {
			last := i == top.last && top.tail
			entry = w.project(c.meta, display, top.depth)
			if err := v.Visit(Step{Entry: entry, Prefix: top.prefix, Last: last, Descend: descend}); err != nil {
				return w.finishStats(), err
			}
			if last {
				prefix += branchLast
			} else {
				prefix += branchMid
			}
		}
		if descend {
			// The children of a filtered-out directory are spliced into this
			// level, so they only close it when nothing visible follows.
			tail := entry != nil || (top.tail && i >= top.last)
			if err := w.open(c.meta.Path, display, prefix, top.depth+1, entry, tail, top.ignores, v); err != nil {
				return w.finishStats(), err
			}
		}
		w.maybeProgress()
	}

	stats := w.finishStats()
	if w.opts.Progress != nil {
		w.opts.Progress(stats)
	}
	err := v.Finish()
	if rootMeta.Type == TypeUnresolved {
		err = errors.Join(err, fmt.Errorf("%w: %s: %s", ErrRootUnreadable, w.display, rootMeta.Err))
	}
	return stats, err
}

func (w *Walker) rootName() string {
	name := filepath.Base(w.display)
	if name == "." || name == ".." {
		name = filepath.Base(w.root)
	}
	return name
}

// project converts m to an Entry, attaches its status symbol and counts it.
func (w *Walker) project(m *EntryMeta, display string, depth int) *Entry {
	e := newEntry(m, display, depth)
	if w.opts.Status != nil {
		if symbol, ok := w.opts.Status.StatusOf(m.Path); ok {
			e.Status = symbol
		}
	}
	w.stats.count(e)
	return e
}

// decide applies the descent policy to m, whose depth is depth. It is the
// only place LoopDetected is set and the only writer of the visited set.
func (w *Walker) decide(m *EntryMeta, depth int) bool {
	if !m.PointsToDirectory() {
		return false
	}
	if m.Canonical == "" {
		return false
	}
	if _, seen := w.visited[m.Canonical]; seen {
		m.LoopDetected = true
		return false
	}
	if !within(w.rootCanon, m.Canonical) {
		m.LoopDetected = false
		m.addErr("blocked: resolves outside root to " + m.Canonical)
		w.stats.Blocked++
		w.logger.Debug("symlink escapes root", zap.String("path", m.Path), zap.String("target", m.Canonical))
		return false
	}
	if m.IsSymlink && !w.opts.FollowSymlinks {
		return false
	}
	if w.opts.MaxDepth > 0 && depth+1 >= w.opts.MaxDepth {
		return false
	}
	w.visited[m.Canonical] = struct{}{}
	return true
}

// within reports whether p equals root or lies beneath it.
func within(root, p string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// open lists dir and pushes its frame. When the listing fails no frame is
// pushed and an emitted owner is closed immediately.
func (w *Walker) open(dir, display, prefix string, depth int, owner *Entry, tail bool, inherited ignoreRules, v Visitor) error {
	if w.opts.WarnDepth > 0 && depth > w.opts.WarnDepth && !w.warnedDepth {
		w.warnedDepth = true
		w.logger.Warn("traversal depth exceeds warning threshold",
			zap.String("path", display), zap.Int("depth", depth), zap.Int("threshold", w.opts.WarnDepth))
	}

	children, ignores, err := w.list(dir, inherited)
	if err != nil {
		w.stats.Unreadable++
		w.logger.Warn("cannot read directory", zap.String("path", display), zap.Error(err))
		if owner != nil {
			return v.Leave(owner)
		}
		return nil
	}

	last := -1
	for i, c := range children {
		if c.visible {
			last = i
		}
	}
	w.stack = append(w.stack, &frame{
		display:  display,
		children: children,
		last:     last,
		prefix:   prefix,
		depth:    depth,
		owner:    owner,
		tail:     tail,
		ignores:  ignores,
	})
	return nil
}

// list reads dir, prunes hidden and ignored names, resolves metadata,
// applies the filter pipeline and sorts.
func (w *Walker) list(dir string, ignores ignoreRules) ([]child, ignoreRules, error) {
	dirents, err := godirwalk.ReadDirents(dir, w.scratch)
	if err != nil {
		return nil, ignores, err
	}
	if w.opts.Gitignore {
		ignores = ignores.extend(dir, w.logger)
	}

	seeds := make([]seed, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if !w.opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		hint := fileTypeOf(de.ModeType())
		p := filepath.Join(dir, name)
		if w.opts.Gitignore {
			if name == ".git" && hint == TypeDir {
				continue
			}
			if ignores.ignored(p, hint == TypeDir) {
				continue
			}
		}
		seeds = append(seeds, seed{path: p, name: name, hint: hint})
	}

	metas := resolveSeeds(seeds, w.workers)
	children := make([]child, len(metas))
	for i, m := range metas {
		if m.Err != "" {
			w.logger.Warn("metadata error", zap.String("path", m.Path), zap.String("error", m.Err))
		}
		children[i] = child{meta: m, visible: w.filters.Accept(m)}
	}

	if w.opts.Sort == SortName {
		slices.SortStableFunc(children, func(a, b child) int {
			return strings.Compare(a.meta.Name, b.meta.Name)
		})
	}
	if w.opts.DirsFirst {
		slices.SortStableFunc(children, func(a, b child) int {
			ad, bd := a.meta.PointsToDirectory(), b.meta.PointsToDirectory()
			switch {
			case ad && !bd:
				return -1
			case !ad && bd:
				return 1
			}
			return 0
		})
	}
	return children, ignores, nil
}

func (w *Walker) maybeProgress() {
	if w.opts.Progress == nil || time.Since(w.lastProgress) < progressInterval {
		return
	}
	w.lastProgress = time.Now()
	w.opts.Progress(w.finishStats())
}

func (w *Walker) finishStats() Stats {
	s := w.stats
	s.updateDerivedStats(w.start)
	return s
}
