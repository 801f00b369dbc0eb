package jobtree

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Tree is a handle on one instantiation of a tree definition, identified by
// the tree name and the resources of its root node.
type Tree struct {
	client    *Client
	def       *TreeDefinition
	resources Resources
	key       string
}

// Key returns the key under which the tree is registered when launched.
func (t *Tree) Key() string { return t.key }

// Name returns the tree name.
func (t *Tree) Name() string { return t.def.name }

// Definition returns the tree definition.
func (t *Tree) Definition() *TreeDefinition { return t.def }

// Resources returns the resources of the root node.
func (t *Tree) Resources() Resources { return t.resources }

// Root returns a handle on the root node.
func (t *Tree) Root() (*Node, error) {
	return t.client.SpawnJob(t.def.root, t.resources, nil)
}

// Store registers the tree as launched.
func (t *Tree) Store(ctx context.Context) error {
	return t.client.Register(ctx, t.key)
}

// Unstore deregisters the tree.
func (t *Tree) Unstore(ctx context.Context) error {
	return t.client.Deregister(ctx, t.key)
}

// Exists reports whether the tree is launched.
func (t *Tree) Exists(ctx context.Context) (bool, error) {
	return t.client.IsLaunched(ctx, t.key)
}

// Launch registers the tree and stores every node the child rules generate,
// depth-first from the root. It returns the leaves, the nodes whose work can
// start immediately.
func (t *Tree) Launch(ctx context.Context) ([]*Node, error) {
	if err := t.Store(ctx); err != nil {
		return nil, err
	}

	root, err := t.Root()
	if err != nil {
		return nil, err
	}

	var leaves []*Node
	var walk func(n *Node) error
	walk = func(n *Node) error {
		children, err := n.Children()
		if err != nil {
			return err
		}
		if len(children) == 0 {
			leaves = append(leaves, n)
			return nil
		}
		for _, child := range children {
			if err := child.Store(ctx); err != nil {
				return err
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, fmt.Errorf("failed to launch tree %s: %w", t.key, err)
	}

	t.client.logEvent(logrus.InfoLevel, "tree_launched", logrus.Fields{
		"tree_key": t.key,
		"leaves":   len(leaves),
	})
	return leaves, nil
}
