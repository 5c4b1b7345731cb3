package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/ptree/internal/output"
	"github.com/TFMV/ptree/internal/render"
	"github.com/TFMV/ptree/internal/vcs"
	"github.com/TFMV/ptree/internal/walk"
)

var version = "0.1.0"

// Execute builds the command tree and runs it.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand returns the ptree command with its own viper instance, so
// that every invocation starts from a clean configuration.
func NewRootCommand() *cobra.Command {
	return newRootCommand(viper.New())
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "ptree [options] [path]",
		Short: "Fast, memory-light directory tree printer",
		Long: `ptree prints a directory tree with post-order size rollups, symlink
loop detection and a composable filter pipeline. Output can be a plain tree,
NDJSON, JSON, CSV, YAML or a self-contained HTML page.

Examples:
  ptree
  ptree --max-depth 3 --dirs-first ./src
  ptree --include "*.go" --exclude "*_test.go" --format ndjson .
  ptree --filter-size ">=1MB" --filter-mtime 7d /var/log
  ptree --gitignore --git-status --color always`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runTree(cmd.Context(), cmd, v, root)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.ptree.yaml)")

	flags := rootCmd.Flags()
	flags.IntP("max-depth", "L", 0, "Maximum depth to display (0 = unlimited, 1 = only the root)")
	flags.BoolP("hidden", "a", false, "Show hidden files and directories")
	flags.Bool("follow-symlinks", false, "Descend into symlinked directories inside the root")
	flags.String("sort", "name", "Sibling order (none|name)")
	flags.Bool("dirs-first", false, "List directories before files")
	flags.StringSlice("include", nil, "Only show entries matching these patterns")
	flags.StringSlice("exclude", nil, "Hide entries matching these patterns")
	flags.String("pattern-syntax", "glob", "Pattern syntax for --include/--exclude (glob|regex)")
	flags.String("match-mode", "name", "Match patterns against the name or the path relative to the root (name|path)")
	flags.String("filter-regex", "", "Only show entries matching this regular expression")
	flags.String("filter-size", "", "Size filter, e.g. >=1MB, <10k, ==0")
	flags.String("filter-mtime", "", "Only show entries modified within this age, e.g. 30m, 3d, 2w")
	flags.String("filter-perm", "", "Only show entries with exactly these permission bits, e.g. 755")
	flags.StringSlice("type", nil, "Only show entries of these kinds (file|dir|symlink)")
	flags.Bool("gitignore", false, "Skip entries ignored by .gitignore files")
	flags.Bool("git-status", false, "Prefix entries with their git status")
	flags.String("color", "auto", "Colorize plain output (auto|always|never)")
	flags.StringP("format", "f", "plain", "Output format (plain|json|ndjson|csv|yaml|html)")
	flags.String("encoding", "auto", "Output encoding (auto|utf8|utf8bom|utf16le|sjis)")
	flags.IntP("jobs", "j", 1, "Workers resolving metadata within one directory")
	flags.Int("warn-depth", walk.DefaultWarnDepth, "Log a warning when the tree is deeper than this (0 disables)")
	flags.StringP("output", "o", "", "Write to this file instead of stdout")
	flags.BoolP("watch", "w", false, "Re-render whenever the tree changes")
	flags.Bool("progress", false, "Report progress on stderr")
	flags.BoolP("verbose", "v", false, "Enable debug diagnostics")
	flags.BoolP("quiet", "q", false, "Only report errors")

	bindFlags(v, rootCmd)

	rootCmd.AddCommand(newDiffCommand(v))
	return rootCmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("PTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".ptree")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func logLevel(v *viper.Viper) walk.LogLevel {
	switch {
	case v.GetBool("verbose"):
		return walk.LogLevelDebug
	case v.GetBool("quiet"):
		return walk.LogLevelError
	}
	return walk.LogLevelWarn
}

// buildOptions turns the flag set into validated traversal options.
func buildOptions(v *viper.Viper, root string, logger *zap.Logger) (*walk.Options, error) {
	sortMode, err := walk.ParseSortMode(v.GetString("sort"))
	if err != nil {
		return nil, err
	}
	syntax, err := walk.ParsePatternSyntax(v.GetString("pattern-syntax"))
	if err != nil {
		return nil, err
	}
	matchMode, err := walk.ParseMatchMode(v.GetString("match-mode"))
	if err != nil {
		return nil, err
	}

	opts := &walk.Options{
		Root:           root,
		MaxDepth:       v.GetInt("max-depth"),
		ShowHidden:     v.GetBool("hidden"),
		FollowSymlinks: v.GetBool("follow-symlinks"),
		Sort:           sortMode,
		DirsFirst:      v.GetBool("dirs-first"),
		Gitignore:      v.GetBool("gitignore"),
		Includes:       v.GetStringSlice("include"),
		Excludes:       v.GetStringSlice("exclude"),
		PatternSyntax:  syntax,
		MatchMode:      matchMode,
		FilterRegex:    v.GetString("filter-regex"),
		FilterSize:     v.GetString("filter-size"),
		FilterMtime:    v.GetString("filter-mtime"),
		FilterPerm:     v.GetString("filter-perm"),
		Types:          v.GetStringSlice("type"),
		Workers:        v.GetInt("jobs"),
		WarnDepth:      v.GetInt("warn-depth"),
		Logger:         logger,
		LogLevel:       logLevel(v),
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := walk.NewFilters(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// useColor resolves --color for a destination. auto colours only a terminal
// stdout and honours NO_COLOR.
func useColor(mode string, toFile bool) (bool, error) {
	switch strings.ToLower(mode) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if toFile || os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	}
	return false, fmt.Errorf("invalid color mode %q (auto|always|never)", mode)
}

// treeRun holds everything one rendering of the tree needs.
type treeRun struct {
	walker   *walk.Walker
	opts     *walk.Options
	format   render.Format
	encoding output.Encoding
	color    bool
	outPath  string
	stdout   io.Writer
	stderr   io.Writer
	logger   *zap.Logger
}

func runTree(ctx context.Context, cmd *cobra.Command, v *viper.Viper, root string) error {
	logger := walk.NewLogger(logLevel(v))
	defer func() { _ = logger.Sync() }()
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}

	opts, err := buildOptions(v, root, logger)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	enc, err := output.ParseEncoding(v.GetString("encoding"))
	if err != nil {
		return err
	}
	outPath := v.GetString("output")
	color, err := useColor(v.GetString("color"), outPath != "")
	if err != nil {
		return err
	}

	run := &treeRun{
		opts:     opts,
		format:   format,
		encoding: enc,
		color:    color,
		outPath:  outPath,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		logger:   logger,
	}
	if v.GetBool("progress") {
		opts.Progress = run.progress
	}
	gitStatus := v.GetBool("git-status")
	if gitStatus {
		run.refreshStatus(root)
	}

	run.walker, err = walk.New(opts)
	if err != nil {
		return err
	}

	if !v.GetBool("watch") {
		return run.render()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := run.render(); err != nil && !errors.Is(err, walk.ErrRootUnreadable) {
		return err
	}
	logger.Info("watching for changes", zap.String("root", root))
	return walk.Watch(ctx, root, walk.WatchOptions{
		IncludeHidden: opts.ShowHidden,
		Logger:        logger,
	}, func(ctx context.Context) error {
		if gitStatus {
			run.refreshStatus(root)
		}
		if err := run.render(); err != nil && !errors.Is(err, walk.ErrRootUnreadable) {
			return err
		}
		return nil
	})
}

// refreshStatus snapshots git status for root. Outside a repository the tree
// is printed without status symbols.
func (r *treeRun) refreshStatus(root string) {
	st, err := vcs.OpenStatus(root)
	if err != nil {
		r.logger.Warn("git status unavailable", zap.Error(err))
		r.opts.Status = nil
		return
	}
	r.opts.Status = st
}

func (r *treeRun) progress(s walk.Stats) {
	fmt.Fprintf(r.stderr, "\r%d dirs, %d files, %d symlinks, %d errors (%s)",
		s.Dirs, s.Files, s.Symlinks, s.Errors, s.ElapsedTime.Round(time.Millisecond))
}

// render walks the tree once into the configured destination. A file
// destination is only replaced when rendering succeeded; an unreadable root
// still produces output and is reported afterwards.
func (r *treeRun) render() error {
	var (
		dst  io.Writer = r.stdout
		sink *output.FileSink
	)
	if r.outPath != "" {
		var err error
		if sink, err = output.CreateFile(r.outPath); err != nil {
			return err
		}
		dst = sink
	}

	buf := bufio.NewWriter(dst)
	encoded := output.NewEncoder(buf, r.encoding)
	visitor, err := render.New(r.format, encoded, render.Options{Color: r.color})
	if err != nil {
		return r.abort(sink, err)
	}

	_, walkErr := r.walker.Walk(visitor)
	if r.opts.Progress != nil {
		fmt.Fprintln(r.stderr)
	}
	if walkErr != nil && !errors.Is(walkErr, walk.ErrRootUnreadable) {
		return r.abort(sink, walkErr)
	}
	if err := encoded.Close(); err != nil {
		return r.abort(sink, err)
	}
	if err := buf.Flush(); err != nil {
		return r.abort(sink, err)
	}
	if sink != nil {
		if err := sink.Commit(); err != nil {
			return err
		}
	}
	return walkErr
}

func (r *treeRun) abort(sink *output.FileSink, err error) error {
	if sink != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			r.logger.Warn("error discarding output", zap.String("path", sink.Path()), zap.Error(abortErr))
		}
	}
	return err
}
