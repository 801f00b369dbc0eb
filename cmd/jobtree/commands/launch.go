package commands

import (
	"fmt"

	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/pkg/jobtree"
	"github.com/spf13/cobra"
)

var launchCmd = &cobra.Command{
	Use:   "launch <tree> [resource...]",
	Short: "Launch a tree and print its ready leaves",
	Long: `Register a tree as launched and store every node its child rules generate.
The leaves are printed; they are the jobs that can start immediately.

Example:
  jobtree launch build 42 linux`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resources, err := parseResources(args[1:])
	if err != nil {
		return err
	}
	tree, err := s.client.Tree(args[0], resources)
	if jobtree.IsUnknownJob(err) {
		return printer.Error(
			"unknown tree",
			fmt.Sprintf("Tree '%s' is not declared.", args[0]),
			[]string{"List declared trees:\n  jobtree trees --declared"},
		)
	}
	if err != nil {
		return err
	}

	printer.Step("launching %s\n", tree.Key())
	leaves, err := tree.Launch(ctx)
	if err != nil {
		return err
	}

	printer.Success("%d ready\n", len(leaves))
	for _, leaf := range leaves {
		printer.Node(leaf.Key(), true)
	}
	return nil
}
