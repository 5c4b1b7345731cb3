package walk

import (
	"time"
)

// progressInterval bounds how often Options.Progress is called.
const progressInterval = 500 * time.Millisecond

// ProgressFn is called with a snapshot of the traversal statistics. It runs
// on the traversal goroutine.
type ProgressFn func(stats Stats)

// Stats holds traversal statistics.
type Stats struct {
	Files       int64         // emitted non-directory, non-symlink entries
	Dirs        int64         // emitted directories, root included
	Symlinks    int64         // emitted symlinks
	Bytes       int64         // sum of emitted file sizes
	Errors      int64         // emitted entries carrying an error
	Loops       int64         // entries flagged as loops
	Blocked     int64         // symlinks blocked for escaping the root
	Unreadable  int64         // directories that could not be listed
	ElapsedTime time.Duration // total time elapsed
	AvgFileSize int64         // average file size in bytes
}

// updateDerivedStats calculates derived statistics like averages.
func (s *Stats) updateDerivedStats(start time.Time) {
	s.ElapsedTime = time.Since(start)
	if s.Files > 0 {
		s.AvgFileSize = s.Bytes / s.Files
	}
}

// count records an emitted entry.
func (s *Stats) count(e *Entry) {
	switch e.Kind {
	case "dir":
		s.Dirs++
	case "symlink":
		s.Symlinks++
	default:
		s.Files++
		if e.Size != nil {
			s.Bytes += *e.Size
		}
	}
	if e.Error != "" {
		s.Errors++
	}
	if e.Loop {
		s.Loops++
	}
}
