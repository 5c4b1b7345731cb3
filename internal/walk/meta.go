package walk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// FileType classifies a filesystem entry.
type FileType int

const (
	TypeUnresolved FileType = iota // metadata could not be read
	TypeFile                       // regular files and anything that is not a dir or symlink
	TypeDir                        // directory
	TypeSymlink                    // symbolic link
)

// BrokenTarget is stored as the symlink target when the link does not resolve.
const BrokenTarget = "<broken>"

// String returns the output kind for t.
func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// fileTypeOf maps an fs.FileMode to a FileType.
func fileTypeOf(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	case mode.IsDir():
		return TypeDir
	default:
		return TypeFile
	}
}

// EntryMeta is the working record for one filesystem entry. It lives only
// while its parent directory's listing is pending.
type EntryMeta struct {
	Path       string       // absolute path
	Name       string       // base name
	Type       FileType     // TypeUnresolved when lstat failed and no hint was known
	TargetType FileType     // what a symlink points to
	Size       *int64       // nil when unreadable
	ModTime    *time.Time   // nil when unreadable
	Perm       *fs.FileMode // permission bits, nil when unreadable
	IsSymlink  bool
	Target     string // readlink text, or BrokenTarget
	Canonical  string // fully resolved path; only for dirs and symlinks
	Err        string // accumulated error messages

	// LoopDetected is only ever set by the traversal engine.
	LoopDetected bool
}

// addErr appends a failure to the entry's error text.
func (m *EntryMeta) addErr(msg string) {
	if m.Err == "" {
		m.Err = msg
		return
	}
	m.Err = m.Err + "; " + msg
}

// PointsToDirectory reports whether m is a directory or a symlink whose
// target is a directory. It is the only eligibility test for descent.
func (m *EntryMeta) PointsToDirectory() bool {
	if m.IsSymlink {
		return m.TargetType == TypeDir
	}
	return m.Type == TypeDir
}

// Resolve builds the EntryMeta for path. hint is the file type already known
// from the directory listing, or TypeUnresolved. Failures are recorded in
// Err and resolution continues with whatever metadata is still obtainable.
func Resolve(path, name string, hint FileType) *EntryMeta {
	m := &EntryMeta{Path: path, Name: name}

	info, err := os.Lstat(path)
	if err != nil {
		m.addErr(describe("lstat", err))
		m.Type = hint
		m.IsSymlink = hint == TypeSymlink
		if m.Type == TypeUnresolved {
			return m
		}
	} else {
		m.Type = fileTypeOf(info.Mode())
		m.IsSymlink = m.Type == TypeSymlink
		size := info.Size()
		mtime := info.ModTime()
		perm := info.Mode().Perm()
		m.Size = &size
		m.ModTime = &mtime
		m.Perm = &perm
	}

	broken := false
	if m.IsSymlink {
		if target, err := os.Readlink(path); err != nil {
			m.addErr(describe("readlink", err))
		} else {
			m.Target = target
		}
		if tinfo, err := os.Stat(path); err != nil {
			if isBrokenLink(err) {
				broken = true
				m.Target = BrokenTarget
			} else {
				m.addErr(describe("stat", err))
			}
		} else {
			m.TargetType = fileTypeOf(tinfo.Mode())
		}
	}

	if m.Type == TypeDir || m.IsSymlink {
		canonical, err := canonicalize(path)
		if err != nil {
			if !broken {
				m.addErr(describe("canonicalize", err))
			}
		} else {
			m.Canonical = canonical
		}
	}
	return m
}

// canonicalize returns the absolute, symlink-free form of path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// isBrokenLink reports whether a following stat failed because the link
// target is missing or the link chain loops.
func isBrokenLink(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ELOOP) || errors.Is(err, syscall.ENOTDIR)
}

// describe renders err without repeating the path, which the entry already
// carries.
func describe(op string, err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return op + ": " + pathErr.Err.Error()
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return op + ": " + linkErr.Err.Error()
	}
	return op + ": " + strings.TrimSpace(err.Error())
}
