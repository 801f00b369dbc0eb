package report

import (
	"context"
	"fmt"

	"github.com/aq/jobtree/pkg/jobtree"
)

// OutputFormat specifies how to format the node listing.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs one node status per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// NodeStatus is a point-in-time view of one node's stored state.
type NodeStatus struct {
	Key              string   `json:"key"`
	Tree             string   `json:"tree"`
	Job              string   `json:"job"`
	Resources        []any    `json:"resources"`
	Depth            int      `json:"depth"`
	Stored           bool     `json:"stored"`
	Parent           string   `json:"parent,omitempty"`
	Children         []string `json:"children"`
	ActiveChildren   []string `json:"active_children"`
	FinishedChildren []string `json:"finished_children"`
}

// Inspect reads the stored state of a single node.
func Inspect(ctx context.Context, node *jobtree.Node, depth int) (*NodeStatus, error) {
	stored, err := node.Exists(ctx)
	if err != nil {
		return nil, err
	}

	status := &NodeStatus{
		Key:       node.Key(),
		Tree:      node.TreeName(),
		Job:       node.Name(),
		Resources: node.Resources(),
		Depth:     depth,
		Stored:    stored,
	}
	if status.Resources == nil {
		status.Resources = []any{}
	}

	if !node.IsRoot() {
		parent, err := node.Parent(ctx)
		switch {
		case err == nil:
			status.Parent = parent.Key()
		case !jobtree.IsNoParent(err):
			return nil, err
		}
	}

	children, err := node.StoredChildren(ctx)
	if err != nil {
		return nil, err
	}
	status.Children = keysOf(children)

	active, err := node.ActiveChildren(ctx)
	if err != nil {
		return nil, err
	}
	status.ActiveChildren = keysOf(active)

	finished, err := node.FinishedChildren(ctx)
	if err != nil {
		return nil, err
	}
	status.FinishedChildren = keysOf(finished)

	return status, nil
}

// Walk inspects start and every stored descendant, depth first.
func Walk(ctx context.Context, start *jobtree.Node) ([]*NodeStatus, error) {
	var statuses []*NodeStatus
	var visit func(n *jobtree.Node, depth int) error
	visit = func(n *jobtree.Node, depth int) error {
		status, err := Inspect(ctx, n, depth)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", n.Key(), err)
		}
		statuses = append(statuses, status)

		children, err := n.StoredChildren(ctx)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := visit(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(start, 0); err != nil {
		return nil, err
	}
	return statuses, nil
}

func keysOf(nodes []*jobtree.Node) []string {
	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		keys = append(keys, n.Key())
	}
	return keys
}
