package render

import (
	"encoding/json"
	"io"

	"github.com/TFMV/ptree/internal/walk"
)

// ndjsonRenderer writes one JSON object per line as entries arrive.
type ndjsonRenderer struct {
	enc *json.Encoder
}

func newNDJSON(w io.Writer) *ndjsonRenderer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &ndjsonRenderer{enc: enc}
}

func (r *ndjsonRenderer) Visit(step walk.Step) error {
	return r.enc.Encode(step.Entry)
}

func (r *ndjsonRenderer) Leave(*walk.Entry) error { return nil }

func (r *ndjsonRenderer) Finish() error { return nil }
