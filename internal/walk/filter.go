package walk

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

// SizeOp is a size comparison operator.
type SizeOp int

const (
	OpLess SizeOp = iota
	OpLessEqual
	OpEqual
	OpGreaterEqual
	OpGreater
)

// SizeFilter compares an entry's size against a byte threshold.
type SizeFilter struct {
	Op    SizeOp
	Bytes int64
}

// Match reports whether size satisfies the filter.
func (f SizeFilter) Match(size int64) bool {
	switch f.Op {
	case OpLess:
		return size < f.Bytes
	case OpLessEqual:
		return size <= f.Bytes
	case OpEqual:
		return size == f.Bytes
	case OpGreaterEqual:
		return size >= f.Bytes
	case OpGreater:
		return size > f.Bytes
	}
	return false
}

// sizeOps is ordered so two-character operators are tried first.
var sizeOps = []struct {
	token string
	op    SizeOp
}{
	{"<=", OpLessEqual},
	{">=", OpGreaterEqual},
	{"==", OpEqual},
	{"<", OpLess},
	{">", OpGreater},
	{"=", OpEqual},
}

var sizeUnits = map[string]int64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gb":  1 << 30,
	"gib": 1 << 30,
	"t":   1 << 40,
	"tb":  1 << 40,
	"tib": 1 << 40,
}

// ParseSizeFilter parses specs such as ">=1MB", "<10k" or "512". A missing
// operator means ">=". All units are binary powers.
func ParseSizeFilter(spec string) (SizeFilter, error) {
	s := strings.TrimSpace(spec)
	f := SizeFilter{Op: OpGreaterEqual}
	for _, candidate := range sizeOps {
		if strings.HasPrefix(s, candidate.token) {
			f.Op = candidate.op
			s = strings.TrimSpace(s[len(candidate.token):])
			break
		}
	}

	split := len(s)
	for i, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}
	number, unit := s[:split], strings.ToLower(strings.TrimSpace(s[split:]))
	if number == "" {
		return SizeFilter{}, fmt.Errorf("%w: size %q has no number", ErrInvalidFilter, spec)
	}
	multiplier, ok := sizeUnits[unit]
	if !ok {
		return SizeFilter{}, fmt.Errorf("%w: size %q has unknown unit %q", ErrInvalidFilter, spec, unit)
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return SizeFilter{}, fmt.Errorf("%w: size %q: %v", ErrInvalidFilter, spec, err)
	}
	n := value * float64(multiplier)
	if n >= math.MaxInt64 {
		return SizeFilter{}, fmt.Errorf("%w: size %q is too large", ErrInvalidFilter, spec)
	}
	f.Bytes = int64(n)
	return f, nil
}

var ageUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseAge parses a relative window such as "3d", "10m", "2h" or "1w".
func ParseAge(spec string) (time.Duration, error) {
	s := strings.TrimSpace(spec)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: mtime window %q is too short", ErrInvalidFilter, spec)
	}
	unit, ok := ageUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("%w: mtime window %q has unknown unit", ErrInvalidFilter, spec)
	}
	value, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: mtime window %q is not a non-negative number", ErrInvalidFilter, spec)
	}
	return time.Duration(value * float64(unit)), nil
}

// ParsePerm parses an octal permission such as "755" or "0644".
func ParsePerm(spec string) (fs.FileMode, error) {
	if runtime.GOOS == "windows" {
		return 0, fmt.Errorf("%w: permission filter", ErrUnsupportedPlatform)
	}
	s := strings.TrimPrefix(strings.TrimSpace(spec), "0o")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("%w: permission %q is not an octal mode", ErrInvalidFilter, spec)
	}
	return fs.FileMode(v), nil
}

// matcher matches a single pattern against a name or relative path.
type matcher func(target string) bool

// hasGlobSyntax reports whether p uses glob metacharacters.
func hasGlobSyntax(p string) bool {
	return strings.ContainsAny(p, `*?[\`)
}

// compilePattern builds a matcher. A pattern without special syntax is
// matched as a substring. Glob wildcards cross "/" boundaries and a glob
// without a "/" matches at any depth. Targets are NFC normalised before
// matching.
func compilePattern(p string, syntax PatternSyntax) (matcher, error) {
	p = norm.NFC.String(p)
	var match matcher
	switch {
	case syntax == PatternRegex && regexp.QuoteMeta(p) != p:
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: regex %q: %v", ErrInvalidFilter, p, err)
		}
		match = re.MatchString
	case syntax == PatternRegex, !hasGlobSyntax(p):
		match = func(target string) bool { return strings.Contains(target, p) }
	default:
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: glob %q: %v", ErrInvalidFilter, p, doublestar.ErrBadPattern)
		}
		globs := []string{p}
		if !strings.Contains(p, "/") {
			globs = append(globs, "**/"+p)
		}
		match = func(target string) bool {
			for _, g := range globs {
				if ok, _ := doublestar.Match(g, target); ok {
					return true
				}
			}
			return false
		}
	}
	return func(target string) bool {
		return match(norm.NFC.String(target))
	}, nil
}

func compilePatterns(patterns []string, syntax PatternSyntax) ([]matcher, error) {
	var errs []error
	matchers := make([]matcher, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		m, err := compilePattern(p, syntax)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matchers = append(matchers, m)
	}
	return matchers, errors.Join(errs...)
}

func anyMatch(matchers []matcher, target string) bool {
	for _, m := range matchers {
		if m(target) {
			return true
		}
	}
	return false
}

// Filters is the immutable filter pipeline derived from Options.
type Filters struct {
	root      string
	mode      MatchMode
	includes  []matcher
	excludes  []matcher
	regex     *regexp.Regexp
	size      *SizeFilter
	minMtime  *time.Time
	perm      *fs.FileMode
	typeAllow map[FileType]bool
}

// NewFilters parses every filter spec in opts. All problems are reported
// together.
func NewFilters(opts *Options) (*Filters, error) {
	return newFiltersAt(opts, time.Now())
}

func newFiltersAt(opts *Options, now time.Time) (*Filters, error) {
	f := &Filters{root: opts.Root, mode: opts.MatchMode}
	var errs []error

	root, err := filepath.Abs(opts.Root)
	if err == nil {
		f.root = root
	}
	if f.includes, err = compilePatterns(opts.Includes, opts.PatternSyntax); err != nil {
		errs = append(errs, err)
	}
	if f.excludes, err = compilePatterns(opts.Excludes, opts.PatternSyntax); err != nil {
		errs = append(errs, err)
	}
	if opts.FilterRegex != "" {
		if f.regex, err = regexp.Compile(norm.NFC.String(opts.FilterRegex)); err != nil {
			errs = append(errs, fmt.Errorf("%w: filter regex %q: %v", ErrInvalidFilter, opts.FilterRegex, err))
		}
	}
	if opts.FilterSize != "" {
		sf, err := ParseSizeFilter(opts.FilterSize)
		if err != nil {
			errs = append(errs, err)
		} else {
			f.size = &sf
		}
	}
	if opts.FilterMtime != "" {
		age, err := ParseAge(opts.FilterMtime)
		if err != nil {
			errs = append(errs, err)
		} else {
			threshold := now.Add(-age)
			f.minMtime = &threshold
		}
	}
	if opts.FilterPerm != "" {
		perm, err := ParsePerm(opts.FilterPerm)
		if err != nil {
			errs = append(errs, err)
		} else {
			f.perm = &perm
		}
	}
	for _, t := range opts.Types {
		if f.typeAllow == nil {
			f.typeAllow = make(map[FileType]bool)
		}
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "file", "f":
			f.typeAllow[TypeFile] = true
		case "dir", "d":
			f.typeAllow[TypeDir] = true
		case "symlink", "l":
			f.typeAllow[TypeSymlink] = true
		default:
			errs = append(errs, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, t))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f, nil
}

// target returns the string patterns are matched against.
func (f *Filters) target(m *EntryMeta) string {
	if f.mode == MatchPath {
		rel, err := filepath.Rel(f.root, m.Path)
		if err != nil {
			rel = m.Path
		}
		return norm.NFC.String(filepath.ToSlash(rel))
	}
	return norm.NFC.String(m.Name)
}

// Accept reports whether every configured filter accepts m. Missing
// metadata required by a filter is a rejection.
func (f *Filters) Accept(m *EntryMeta) bool {
	if f.typeAllow != nil && !f.typeAllow[m.Type] {
		return false
	}
	if len(f.includes) > 0 || len(f.excludes) > 0 || f.regex != nil {
		target := f.target(m)
		if len(f.includes) > 0 && !anyMatch(f.includes, target) {
			return false
		}
		if anyMatch(f.excludes, target) {
			return false
		}
		if f.regex != nil && !f.regex.MatchString(target) {
			return false
		}
	}
	if f.size != nil && (m.Size == nil || !f.size.Match(*m.Size)) {
		return false
	}
	if f.minMtime != nil && (m.ModTime == nil || m.ModTime.Before(*f.minMtime)) {
		return false
	}
	if f.perm != nil && (m.Perm == nil || *m.Perm != *f.perm) {
		return false
	}
	return true
}
