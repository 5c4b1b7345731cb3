package walk

import (
	"fmt"
	"strconv"
)

// Entry is the output-facing projection of an EntryMeta. Renderers may
// overwrite Size on directory entries once their subtree has been rolled up.
type Entry struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Depth  int    `json:"depth" yaml:"depth"`
	Kind   string `json:"kind" yaml:"kind"`
	Size   *int64 `json:"size,omitempty" yaml:"size,omitempty"`
	MTime  string `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	Perm   string `json:"perm,omitempty" yaml:"perm,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Loop   bool   `json:"loop" yaml:"loop,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// IsDir reports whether the entry is a real directory.
func (e *Entry) IsDir() bool {
	return e.Kind == "dir"
}

// Step is one element of the traversal stream.
type Step struct {
	Entry   *Entry
	Prefix  string // tree prefix inherited from the parent frame
	Last    bool   // last visible sibling in its directory
	Descend bool   // the engine will open this entry's listing
}

// Visitor consumes the traversal stream. Every Visit with Descend set is
// followed by exactly one Leave for the same entry once its subtree has been
// drained. Finish is called once after the root's Leave. Any returned error
// aborts the traversal.
type Visitor interface {
	Visit(step Step) error
	Leave(entry *Entry) error
	Finish() error
}

// newEntry projects m into an Entry at the given depth.
func newEntry(m *EntryMeta, display string, depth int) *Entry {
	e := &Entry{
		Name:   m.Name,
		Path:   display,
		Depth:  depth,
		Kind:   m.Type.String(),
		Size:   m.Size,
		Target: m.Target,
		Loop:   m.LoopDetected,
		Error:  m.Err,
	}
	if m.ModTime != nil {
		e.MTime = strconv.FormatInt(m.ModTime.Unix(), 10)
	}
	if m.Perm != nil {
		e.Perm = fmt.Sprintf("%03o", uint32(*m.Perm))
	}
	return e
}
