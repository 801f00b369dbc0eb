package commands

import (
	"github.com/aq/jobtree/internal/printer"
	"github.com/spf13/cobra"
)

var finishCmd = &cobra.Command{
	Use:   "finish <tree> <job> [resource...]",
	Short: "Mark a node finished",
	Long: `Move a node from its parent's children to its finished children. When it
was the last active child, the parent is printed: its work can now run.
Finishing a root cleans up the whole tree.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFinish,
}

func init() {
	rootCmd.AddCommand(finishCmd)
}

func runFinish(cmd *cobra.Command, args []string) error {
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

	ready, err := node.Finish(ctx)
	if err != nil {
		return err
	}

	printer.Success("finished %s\n", node.Key())
	switch {
	case node.IsRoot():
		printer.Info("tree released\n")
	case ready != nil:
		printer.Info("ready:\n")
		printer.Node(ready.Key(), true)
	}
	return nil
}
