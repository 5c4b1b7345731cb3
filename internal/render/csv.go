package render

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/TFMV/ptree/internal/walk"
)

var csvHeader = []string{"name", "path", "depth", "kind", "size", "mtime", "perm", "target", "loop", "error", "status"}

// csvRenderer writes a header followed by one record per entry.
type csvRenderer struct {
	w      *csv.Writer
	header bool
}

func newCSV(w io.Writer) *csvRenderer {
	return &csvRenderer{w: csv.NewWriter(w)}
}

func (r *csvRenderer) Visit(step walk.Step) error {
	if !r.header {
		r.header = true
		if err := r.w.Write(csvHeader); err != nil {
			return err
		}
	}
	return r.w.Write(csvRecord(step.Entry))
}

func (r *csvRenderer) Leave(*walk.Entry) error { return nil }

func (r *csvRenderer) Finish() error {
	if !r.header {
		if err := r.w.Write(csvHeader); err != nil {
			return err
		}
	}
	r.w.Flush()
	return r.w.Error()
}

func csvRecord(e *walk.Entry) []string {
	size := ""
	if e.Size != nil {
		size = strconv.FormatInt(*e.Size, 10)
	}
	return []string{
		e.Name,
		e.Path,
		strconv.Itoa(e.Depth),
		e.Kind,
		size,
		e.MTime,
		e.Perm,
		e.Target,
		strconv.FormatBool(e.Loop),
		e.Error,
		e.Status,
	}
}
