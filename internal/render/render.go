// Package render turns the traversal stream into one of several output
// encodings. Every renderer is a walk.Visitor; none of them influences
// traversal policy.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TFMV/ptree/internal/walk"
)

// ErrInvalidFormat is returned by ParseFormat for unknown names.
var ErrInvalidFormat = errors.New("render: invalid format")

// Format selects an output encoding.
type Format int

const (
	FormatPlain  Format = iota // ASCII tree with size rollups
	FormatJSON                 // single JSON array
	FormatNDJSON               // one JSON object per line
	FormatCSV                  // header plus one record per entry
	FormatYAML                 // nested tree
	FormatHTML                 // self-contained page
)

var formatNames = map[string]Format{
	"plain":  FormatPlain,
	"json":   FormatJSON,
	"ndjson": FormatNDJSON,
	"csv":    FormatCSV,
	"yaml":   FormatYAML,
	"html":   FormatHTML,
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return FormatPlain, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return f, nil
}

func (f Format) String() string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}
	return "unknown"
}

// Options tunes renderer output.
type Options struct {
	Color bool   // plain only
	Title string // html only; defaults to the root path
}

// New returns the renderer for format writing to w.
func New(format Format, w io.Writer, opts Options) (walk.Visitor, error) {
	switch format {
	case FormatPlain:
		return newPlain(w, opts), nil
	case FormatJSON:
		return newJSONArray(w), nil
	case FormatNDJSON:
		return newNDJSON(w), nil
	case FormatCSV:
		return newCSV(w), nil
	case FormatYAML:
		return newYAML(w), nil
	case FormatHTML:
		return newHTML(w, opts), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, format)
}

// sizeStack rolls directory sizes up the chain of open directories.
type sizeStack struct {
	sums []int64
}

func (s *sizeStack) push() {
	s.sums = append(s.sums, 0)
}

func (s *sizeStack) add(n int64) {
	if len(s.sums) > 0 {
		s.sums[len(s.sums)-1] += n
	}
}

// pop closes the innermost directory and credits its total to the parent.
func (s *sizeStack) pop() int64 {
	n := len(s.sums) - 1
	total := s.sums[n]
	s.sums = s.sums[:n]
	s.add(total)
	return total
}

// visit accounts for step. A directory that will not be descended has no
// known aggregate, so its size is cleared and it contributes nothing.
func (s *sizeStack) visit(step walk.Step) {
	e := step.Entry
	switch {
	case step.Descend:
		s.push()
	case e.IsDir():
		e.Size = nil
	case e.Size != nil:
		s.add(*e.Size)
	}
}

// leave closes e's directory and stores the rolled-up size on it.
func (s *sizeStack) leave(e *walk.Entry) {
	total := s.pop()
	e.Size = &total
}

// FormatBytes renders n with binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}
