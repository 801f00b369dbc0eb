package commands

import (
	"github.com/aq/jobtree/internal/printer"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <tree> <job> [resource...]",
	Short: "Purge a node, its subtree and any emptied ancestors",
	Long: `Delete every record of a node and its descendants. The node leaves its
parent's sets; when it was the parent's only stored child the parent is
cleaned up too, up to the root, which deregisters the tree.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
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

	existed, err := node.Exists(ctx)
	if err != nil {
		return err
	}
	if !existed {
		printer.Warning("%s is not stored\n", node.Key())
	}

	if err := node.Cleanup(ctx); err != nil {
		return err
	}
	printer.Success("cleaned up %s\n", node.Key())
	return nil
}
