package render

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/TFMV/ptree/internal/walk"
)

// jsonArrayRenderer streams entries as the elements of one top-level array.
// Only the punctuation between elements is buffered.
type jsonArrayRenderer struct {
	w     io.Writer
	count int
}

func newJSONArray(w io.Writer) *jsonArrayRenderer {
	return &jsonArrayRenderer{w: w}
}

func (r *jsonArrayRenderer) Visit(step walk.Step) error {
	data, err := marshalEntry(step.Entry)
	if err != nil {
		return err
	}
	sep := ",\n  "
	if r.count == 0 {
		sep = "[\n  "
	}
	r.count++
	if _, err := io.WriteString(r.w, sep); err != nil {
		return err
	}
	_, err = r.w.Write(data)
	return err
}

func (r *jsonArrayRenderer) Leave(*walk.Entry) error { return nil }

func (r *jsonArrayRenderer) Finish() error {
	if r.count == 0 {
		_, err := io.WriteString(r.w, "[]\n")
		return err
	}
	_, err := io.WriteString(r.w, "\n]\n")
	return err
}

// marshalEntry encodes e without HTML escaping and without the trailing
// newline json.Encoder appends.
func marshalEntry(e *walk.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
