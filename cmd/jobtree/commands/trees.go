package commands

import (
	"strings"

	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/pkg/jobtree"
	"github.com/spf13/cobra"
)

var treesDeclared bool

var treesCmd = &cobra.Command{
	Use:   "trees",
	Short: "List launched trees",
	Long: `List the trees registered as launched in the current namespace.

With --declared, print the trees and job hierarchies from the configuration
instead.`,
	Args: cobra.NoArgs,
	RunE: runTrees,
}

func init() {
	treesCmd.Flags().BoolVar(&treesDeclared, "declared", false, "List declared trees and their jobs")
	rootCmd.AddCommand(treesCmd)
}

func runTrees(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if treesDeclared {
		catalog, err := s.cfg.Catalog()
		if err != nil {
			return err
		}
		for _, tree := range catalog.Trees() {
			printer.Info("%s\n", tree.Name())
			printJobs(tree.Root(), 1)
		}
		return nil
	}

	launched, err := s.client.LaunchedTrees(ctx)
	if err != nil {
		return err
	}
	if len(launched) == 0 {
		printer.Info("No launched trees in namespace '%s'\n", s.client.Namespace())
		return nil
	}
	for _, key := range launched {
		printer.Info("%s\n", key)
	}
	return nil
}

func printJobs(job *jobtree.JobDefinition, depth int) {
	printer.Info("%s%s\n", strings.Repeat("  ", depth), job.Name())
	for _, child := range job.Children() {
		printJobs(child, depth+1)
	}
}
