// Package output provides the writers ptree renders into: a transcoding
// writer for the selected text encoding and a locked file sink that only
// replaces its target once the whole document has been written.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidEncoding is returned by ParseEncoding for unknown names.
var ErrInvalidEncoding = errors.New("output: invalid encoding")

// Encoding selects the byte encoding of rendered text.
type Encoding int

const (
	EncodingAuto Encoding = iota // same as UTF-8
	EncodingUTF8
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingShiftJIS
)

// ParseEncoding parses utf8, utf8bom, utf16le, sjis or auto.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "auto":
		return EncodingAuto, nil
	case "utf8":
		return EncodingUTF8, nil
	case "utf8bom":
		return EncodingUTF8BOM, nil
	case "utf16le":
		return EncodingUTF16LE, nil
	case "sjis", "shiftjis":
		return EncodingShiftJIS, nil
	}
	return EncodingAuto, fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
}

func (e Encoding) encoder() *encoding.Encoder {
	switch e {
	case EncodingUTF8BOM:
		return unicode.UTF8BOM.NewEncoder()
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	case EncodingShiftJIS:
		return japanese.ShiftJIS.NewEncoder()
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NewEncoder wraps w so that UTF-8 text written to it reaches w in enc.
// Runes the target encoding cannot represent are replaced instead of
// failing the write. Close flushes pending bytes but does not close w.
func NewEncoder(w io.Writer, enc Encoding) io.WriteCloser {
	e := enc.encoder()
	if e == nil {
		return nopCloser{w}
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(e))
}
