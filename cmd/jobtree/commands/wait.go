package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/internal/watch"
	"github.com/spf13/cobra"
)

var (
	waitFor      time.Duration
	waitReleased bool
)

var waitCmd = &cobra.Command{
	Use:   "wait <tree> <job> [resource...]",
	Short: "Block until a node is ready to run",
	Long: `Poll until the node has no active children, meaning every child has
finished and the node's own work may run.

With --released the node must be a root; the command then waits until the
tree has been cleaned up and deregistered.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().DurationVar(&waitFor, "for", 5*time.Minute, "Maximum time to wait")
	waitCmd.Flags().BoolVar(&waitReleased, "released", false, "Wait for the tree to be released instead")
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	setupCtx, cancel := commandContext()
	defer cancel()

	s, err := openSession(setupCtx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.spawnFromArgs(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if waitReleased {
		tree, err := node.Tree()
		if err != nil {
			return printer.Error(
				"not a root",
				fmt.Sprintf("--released needs the root of a tree; '%s' is not one.", node.Name()),
				[]string{"Pass the tree's root job"},
			)
		}
		printer.Step("waiting for %s to be released\n", tree.Key())
		if err := watch.PollUntilReleased(ctx, tree, waitFor); err != nil {
			return err
		}
		printer.Success("released %s\n", tree.Key())
		return nil
	}

	printer.Step("waiting for %s\n", node.Key())
	if err := watch.PollUntilReady(ctx, node, waitFor); err != nil {
		return err
	}
	printer.Success("ready %s\n", node.Key())
	return nil
}
