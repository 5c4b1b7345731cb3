package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/ptree/internal/vcs"
)

func newDiffCommand(v *viper.Viper) *cobra.Command {
	diffCmd := &cobra.Command{
		Use:   "diff --rev-a <rev> --rev-b <rev> [--path <subpath>]",
		Short: "List paths changed between two git revisions",
		Long: `List the paths that were added, deleted or modified between two
revisions of the repository containing the current directory.

Examples:
  ptree diff --rev-a HEAD~1 --rev-b HEAD
  ptree diff --rev-a v1.0.0 --rev-b main --path internal
  ptree diff --rev-a main --rev-b feature --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, v)
		},
	}

	flags := diffCmd.Flags()
	flags.String("rev-a", "", "Base revision")
	flags.String("rev-b", "", "Revision to compare against the base")
	flags.String("path", "", "Only report changes under this path")
	flags.String("format", "plain", "Output format (plain|json)")
	flags.String("color", "auto", "Colorize plain output (auto|always|never)")
	flags.String("repo", ".", "Path inside the repository")
	_ = diffCmd.MarkFlagRequired("rev-a")
	_ = diffCmd.MarkFlagRequired("rev-b")

	for _, name := range []string{"rev-a", "rev-b", "path", "format", "color", "repo"} {
		_ = v.BindPFlag("diff."+name, flags.Lookup(name))
	}
	return diffCmd
}

func runDiff(cmd *cobra.Command, v *viper.Viper) error {
	format := strings.ToLower(v.GetString("diff.format"))
	if format != "plain" && format != "json" {
		return fmt.Errorf("invalid diff format %q (plain|json)", format)
	}

	revA, revB := v.GetString("diff.rev-a"), v.GetString("diff.rev-b")
	changes, err := vcs.Diff(cmd.Context(), vcs.DiffOptions{
		Repo:    v.GetString("diff.repo"),
		RevA:    revA,
		RevB:    revB,
		Subpath: v.GetString("diff.path"),
	})
	if err != nil {
		return err
	}

	if format == "json" {
		return vcs.WriteDiffJSON(cmd.OutOrStdout(), changes)
	}
	color, err := useColor(v.GetString("diff.color"), false)
	if err != nil {
		return err
	}
	return vcs.WriteDiffPlain(cmd.OutOrStdout(), revA, revB, changes, color)
}
