package commands

import (
	"fmt"

	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/internal/report"
	"github.com/spf13/cobra"
)

var (
	inspectOutputFormat string
	inspectRecursive    bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <tree> <job> [resource...]",
	Short: "Show the stored state of a node",
	Long: `Show whether a node is stored, its parent, its stored children and the
children that have finished.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one node per line

Examples:
  # Inspect the root of a launched tree
  jobtree inspect build root 42

  # Walk the whole subtree as JSONL for piping to jq
  jobtree inspect build root 42 -r --output=jsonl | jq 'select(.stored)'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	inspectCmd.Flags().BoolVarP(&inspectRecursive, "recursive", "r", false, "Include every stored descendant")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := report.ParseOutputFormat(inspectOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", inspectOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.spawnFromArgs(args)
	if err != nil {
		return err
	}

	var statuses []*report.NodeStatus
	if inspectRecursive {
		statuses, err = report.Walk(ctx, node)
	} else {
		var status *report.NodeStatus
		status, err = report.Inspect(ctx, node, 0)
		statuses = append(statuses, status)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", node.Key(), err)
	}

	if format == report.OutputFormatJSONL {
		return report.FormatJSONL(cmd.OutOrStdout(), statuses)
	}
	report.FormatTable(cmd.OutOrStdout(), statuses, node.Key())
	return nil
}
