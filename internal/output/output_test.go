package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	tests := map[string]Encoding{
		"":          EncodingAuto,
		"auto":      EncodingAuto,
		"utf8":      EncodingUTF8,
		"UTF-8":     EncodingUTF8,
		"utf8bom":   EncodingUTF8BOM,
		"utf16le":   EncodingUTF16LE,
		"UTF-16LE":  EncodingUTF16LE,
		"sjis":      EncodingShiftJIS,
		"Shift-JIS": EncodingShiftJIS,
	}
	for in, want := range tests {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEncoding("latin9")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func encode(t *testing.T, enc Encoding, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewEncoder(&buf, enc)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewEncoder(t *testing.T) {
	assert.Equal(t, []byte("├── a"), encode(t, EncodingAuto, "├── a"))
	assert.Equal(t, []byte("a"), encode(t, EncodingUTF8, "a"))
	assert.Equal(t, []byte("\xef\xbb\xbfa"), encode(t, EncodingUTF8BOM, "a"))
	assert.Equal(t, []byte{'a', 0, 'b', 0}, encode(t, EncodingUTF16LE, "ab"))
	assert.Equal(t, []byte{0x82, 0xa0}, encode(t, EncodingShiftJIS, "あ"))
}

func TestNewEncoderReplacesUnsupported(t *testing.T) {
	out := encode(t, EncodingShiftJIS, "a😀b")
	require.Len(t, out, 3)
	assert.Equal(t, byte('a'), out[0])
	assert.Equal(t, byte('b'), out[2])
}

func TestFileSinkCommit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "tree.txt")

	sink, err := CreateFile(target)
	require.NoError(t, err)
	assert.Equal(t, target, sink.Path())

	_, err = sink.Write([]byte("hello\n"))
	require.NoError(t, err)
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "target must not exist before commit")

	require.NoError(t, sink.Commit())
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	require.NoError(t, sink.Abort(), "abort after commit is a no-op")
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestFileSinkAbortKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tree.txt")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o644))

	sink, err := CreateFile(target)
	require.NoError(t, err)
	_, err = sink.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, sink.Abort())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file must be removed")
	}
}

func TestFileSinkHoldsLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree.txt")
	sink, err := CreateFile(target)
	require.NoError(t, err)

	other := flock.New(target + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, locked, "lock must be held while the sink is open")

	require.NoError(t, sink.Commit())
	locked, err = other.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	require.NoError(t, other.Unlock())
}
