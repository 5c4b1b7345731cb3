// Package walk implements the traversal-and-rendering core of ptree: entry
// metadata resolution, the filter pipeline, the per-directory concurrent
// resolver and the explicit-stack traversal engine.
package walk

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MaxWorkers is the upper clamp applied to Options.Workers.
const MaxWorkers = 256

// DefaultWarnDepth is the depth above which a diagnostic warning is logged.
const DefaultWarnDepth = 5000

var (
	ErrInvalidOptions      = errors.New("ptree: invalid options")
	ErrInvalidFilter       = errors.New("ptree: invalid filter")
	ErrUnsupportedPlatform = errors.New("ptree: unsupported on this platform")
)

// SortMode defines how siblings are ordered.
type SortMode int

const (
	SortNone SortMode = iota // platform enumeration order
	SortName                 // lexicographic on raw byte name
)

// PatternSyntax selects how include/exclude patterns are compiled.
type PatternSyntax int

const (
	PatternGlob PatternSyntax = iota
	PatternRegex
)

// MatchMode selects what a pattern is matched against.
type MatchMode int

const (
	MatchName MatchMode = iota // base name
	MatchPath                  // path relative to the scan root
)

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// StatusProvider supplies version-control status symbols. The core passes
// the symbol through without interpreting it.
type StatusProvider interface {
	StatusOf(path string) (string, bool)
}

// Options is the validated configuration consumed by the traversal engine.
type Options struct {
	Root           string
	MaxDepth       int // 0 = unlimited, 1 = only the root
	ShowHidden     bool
	FollowSymlinks bool
	Sort           SortMode
	DirsFirst      bool
	Gitignore      bool

	Includes      []string
	Excludes      []string
	PatternSyntax PatternSyntax
	MatchMode     MatchMode
	FilterRegex   string
	FilterSize    string // e.g. ">=1MB"
	FilterMtime   string // e.g. "3d"
	FilterPerm    string // e.g. "755"
	Types         []string

	Workers   int
	WarnDepth int // diagnostic only; 0 disables the warning

	Status   StatusProvider
	Progress ProgressFn
	Logger   *zap.Logger
	LogLevel LogLevel
}

// Validate checks the fields that do not need filter parsing.
func (o *Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Root) == "" {
		errs = append(errs, fmt.Errorf("%w: root path is empty", ErrInvalidOptions))
	}
	if o.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max depth %d is negative", ErrInvalidOptions, o.MaxDepth))
	}
	if o.WarnDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: warn depth %d is negative", ErrInvalidOptions, o.WarnDepth))
	}
	switch o.Sort {
	case SortNone, SortName:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown sort mode %d", ErrInvalidOptions, o.Sort))
	}
	return errors.Join(errs...)
}

// ClampWorkers bounds n to [1, MaxWorkers].
func ClampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// comfortWorkers is the worker count above which a warning is logged.
func comfortWorkers() int {
	return 4 * runtime.NumCPU()
}

// ParseSortMode parses "none" or "name".
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return SortNone, nil
	case "name":
		return SortName, nil
	}
	return SortNone, fmt.Errorf("%w: unknown sort mode %q", ErrInvalidOptions, s)
}

// ParsePatternSyntax parses "glob" or "regex".
func ParsePatternSyntax(s string) (PatternSyntax, error) {
	switch strings.ToLower(s) {
	case "", "glob":
		return PatternGlob, nil
	case "regex":
		return PatternRegex, nil
	}
	return PatternGlob, fmt.Errorf("%w: unknown pattern syntax %q", ErrInvalidOptions, s)
}

// ParseMatchMode parses "name" or "path".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "", "name":
		return MatchName, nil
	case "path":
		return MatchPath, nil
	}
	return MatchName, fmt.Errorf("%w: unknown match mode %q", ErrInvalidOptions, s)
}

// NewLogger creates the diagnostic logger for the given level. Output is a
// console encoding on stderr so diagnostics stay human readable.
func NewLogger(level LogLevel) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	config.DisableCaller = true
	config.EncoderConfig.TimeKey = ""

	switch level {
	case LogLevelError:
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case LogLevelWarn:
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelInfo:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case LogLevelDebug:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
