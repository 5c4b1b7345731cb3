package walk

import (
	"context"
	"io"

	"github.com/TFMV/ptree/internal/render"
	internal "github.com/TFMV/ptree/internal/walk"
)

// Re-export the core types from the internal package
type (
	// Options is the traversal configuration.
	Options = internal.Options

	// Walker is the explicit-stack traversal engine.
	Walker = internal.Walker

	// Entry is one emitted node of the tree.
	Entry = internal.Entry

	// Step is one element of the traversal stream.
	Step = internal.Step

	// Visitor consumes the traversal stream.
	Visitor = internal.Visitor

	// EntryMeta is the fully resolved metadata of one filesystem entry.
	EntryMeta = internal.EntryMeta

	// FileType is the resolved kind of an entry.
	FileType = internal.FileType

	// Stats holds traversal statistics.
	Stats = internal.Stats

	// ProgressFn is called periodically with traversal statistics.
	ProgressFn = internal.ProgressFn

	// StatusProvider supplies version-control status symbols.
	StatusProvider = internal.StatusProvider

	SortMode      = internal.SortMode
	PatternSyntax = internal.PatternSyntax
	MatchMode     = internal.MatchMode
	LogLevel      = internal.LogLevel

	// WatchOptions configures Watch.
	WatchOptions = internal.WatchOptions

	// ChangeHandler is called after the watched tree changed.
	ChangeHandler = internal.ChangeHandler

	// Format selects an output encoding.
	Format = render.Format
)

const (
	SortNone = internal.SortNone
	SortName = internal.SortName

	PatternGlob  = internal.PatternGlob
	PatternRegex = internal.PatternRegex

	MatchName = internal.MatchName
	MatchPath = internal.MatchPath

	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	FormatPlain  = render.FormatPlain
	FormatJSON   = render.FormatJSON
	FormatNDJSON = render.FormatNDJSON
	FormatCSV    = render.FormatCSV
	FormatYAML   = render.FormatYAML
	FormatHTML   = render.FormatHTML
)

var (
	ErrInvalidOptions      = internal.ErrInvalidOptions
	ErrInvalidFilter       = internal.ErrInvalidFilter
	ErrUnsupportedPlatform = internal.ErrUnsupportedPlatform
	ErrRootUnreadable      = internal.ErrRootUnreadable
)

// New validates opts and returns a Walker.
func New(opts *Options) (*Walker, error) {
	return internal.New(opts)
}

// Resolve reads the metadata of a single path.
func Resolve(path, name string) *EntryMeta {
	return internal.Resolve(path, name, internal.TypeUnresolved)
}

// ParseFormat parses plain, json, ndjson, csv, yaml or html.
func ParseFormat(s string) (Format, error) {
	return render.ParseFormat(s)
}

// Print walks opts.Root and writes it to w in the given format.
func Print(w io.Writer, format Format, opts *Options) (Stats, error) {
	walker, err := internal.New(opts)
	if err != nil {
		return Stats{}, err
	}
	v, err := render.New(format, w, render.Options{})
	if err != nil {
		return Stats{}, err
	}
	return walker.Walk(v)
}

// Watch calls onChange, debounced, whenever something under root changes.
func Watch(ctx context.Context, root string, opts WatchOptions, onChange ChangeHandler) error {
	return internal.Watch(ctx, root, opts, onChange)
}
