package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/TFMV/ptree/internal/walk"
)

const (
	connectorMid  = "├── "
	connectorLast = "└── "
)

// palette colours plain output. A nil palette prints without escapes.
type palette struct {
	root    *color.Color
	dir     *color.Color
	symlink *color.Color
	err     *color.Color
	loop    *color.Color
	status  map[string]*color.Color
}

func newPalette(enabled bool) *palette {
	if !enabled {
		return nil
	}
	p := &palette{
		root:    color.New(color.Bold),
		dir:     color.New(color.FgBlue, color.Bold),
		symlink: color.New(color.FgCyan),
		err:     color.New(color.FgRed),
		loop:    color.New(color.FgYellow),
		status: map[string]*color.Color{
			"M": color.New(color.FgYellow),
			"A": color.New(color.FgGreen),
			"D": color.New(color.FgRed),
			"R": color.New(color.FgCyan),
			"?": color.New(color.FgMagenta),
		},
	}
	for _, c := range []*color.Color{p.root, p.dir, p.symlink, p.err, p.loop} {
		c.EnableColor()
	}
	for _, c := range p.status {
		c.EnableColor()
	}
	return p
}

func (p *palette) paint(c *color.Color, s string) string {
	if p == nil || c == nil {
		return s
	}
	return c.Sprint(s)
}

func (p *palette) name(e *walk.Entry) string {
	if p == nil {
		return e.Name
	}
	switch e.Kind {
	case "dir":
		return p.paint(p.dir, e.Name)
	case "symlink":
		return p.paint(p.symlink, e.Name)
	}
	return e.Name
}

func (p *palette) statusSymbol(s string) string {
	if p == nil {
		return s
	}
	return p.paint(p.status[s], s)
}

// pendingDir is an emitted directory whose subtree is still draining. Its
// line cannot be written before its size is known, so the lines of its
// descendants collect in buf.
type pendingDir struct {
	step walk.Step
	root bool
	buf  bytes.Buffer
}

// plainRenderer draws the connector tree with post-order size rollups.
type plainRenderer struct {
	out     io.Writer
	colors  *palette
	sizes   sizeStack
	pending []*pendingDir
	dirs    int
	files   int
	total   *int64
}

func newPlain(w io.Writer, opts Options) *plainRenderer {
	return &plainRenderer{out: w, colors: newPalette(opts.Color)}
}

// sink is where the next line goes: the innermost pending directory's
// buffer, or the output once only the root is open.
func (r *plainRenderer) sink() io.Writer {
	if n := len(r.pending); n > 0 && !r.pending[n-1].root {
		return &r.pending[n-1].buf
	}
	return r.out
}

func (r *plainRenderer) Visit(step walk.Step) error {
	e := step.Entry
	r.sizes.visit(step)

	if e.Depth == 0 {
		if _, err := io.WriteString(r.out, r.rootLine(e)); err != nil {
			return err
		}
		if step.Descend {
			r.pending = append(r.pending, &pendingDir{step: step, root: true})
		}
		return nil
	}

	if e.IsDir() || step.Descend {
		r.dirs++
	} else {
		r.files++
	}
	if step.Descend {
		r.pending = append(r.pending, &pendingDir{step: step})
		return nil
	}
	_, err := io.WriteString(r.sink(), r.line(step))
	return err
}

func (r *plainRenderer) Leave(e *walk.Entry) error {
	r.sizes.leave(e)
	n := len(r.pending) - 1
	p := r.pending[n]
	r.pending = r.pending[:n]
	if p.root {
		r.total = e.Size
		return nil
	}

	dst := r.sink()
	if _, err := io.WriteString(dst, r.line(p.step)); err != nil {
		return err
	}
	_, err := p.buf.WriteTo(dst)
	return err
}

func (r *plainRenderer) Finish() error {
	summary := fmt.Sprintf("\n%d %s, %d %s", r.dirs, plural(r.dirs, "directory", "directories"), r.files, plural(r.files, "file", "files"))
	if r.total != nil {
		summary += ", " + FormatBytes(*r.total)
	}
	_, err := io.WriteString(r.out, summary+"\n")
	return err
}

func (r *plainRenderer) rootLine(e *walk.Entry) string {
	var b strings.Builder
	if e.Status != "" {
		b.WriteString(r.colors.statusSymbol(e.Status))
		b.WriteByte(' ')
	}
	b.WriteString(r.colors.paint(r.colors.rootColor(), e.Path))
	r.annotate(&b, e, false)
	b.WriteByte('\n')
	return b.String()
}

func (r *plainRenderer) line(step walk.Step) string {
	e := step.Entry
	var b strings.Builder
	b.WriteString(step.Prefix)
	if step.Last {
		b.WriteString(connectorLast)
	} else {
		b.WriteString(connectorMid)
	}
	if e.Status != "" {
		b.WriteString(r.colors.statusSymbol(e.Status))
		b.WriteByte(' ')
	}
	b.WriteString(r.colors.name(e))
	r.annotate(&b, e, true)
	b.WriteByte('\n')
	return b.String()
}

func (r *plainRenderer) annotate(b *strings.Builder, e *walk.Entry, withSize bool) {
	if e.Target != "" {
		b.WriteString(" -> ")
		b.WriteString(e.Target)
	}
	if withSize && e.Size != nil {
		fmt.Fprintf(b, " (%s)", FormatBytes(*e.Size))
	}
	if e.Loop {
		b.WriteString(" ")
		b.WriteString(r.colors.paint(r.colors.loopColor(), "[loop]"))
	}
	if e.Error != "" {
		b.WriteString(" ")
		b.WriteString(r.colors.paint(r.colors.errColor(), "[error: "+e.Error+"]"))
	}
}

func (p *palette) rootColor() *color.Color {
	if p == nil {
		return nil
	}
	return p.root
}

func (p *palette) loopColor() *color.Color {
	if p == nil {
		return nil
	}
	return p.loop
}

func (p *palette) errColor() *color.Color {
	if p == nil {
		return nil
	}
	return p.err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
