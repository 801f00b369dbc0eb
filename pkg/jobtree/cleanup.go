package jobtree

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Cleanup purges the node and its whole subtree from storage.
//
// Descendants are cleaned first, then the node's children set, finished
// children set and parent linkage are deleted. A root deregisters its tree.
// Any other node leaves its parent's sets, and if it was the parent's only
// stored child the parent is cleaned up in turn.
//
// Cleanup is not atomic. Concurrent cleanups of one tree are safe to repeat
// (every step is idempotent) but may orphan a sibling stored mid-cascade;
// callers needing strict consistency must serialize cleanup per tree.
func (n *Node) Cleanup(ctx context.Context) error {
	return n.cleanup(ctx, true)
}

// cleanup runs the cascade. propagate is false while descending: the caller
// is cleaning the parent and will delete the parent's sets itself.
func (n *Node) cleanup(ctx context.Context, propagate bool) error {
	descendants, err := n.purgeCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list children of %s: %w", n.key, err)
	}
	for _, child := range descendants {
		if err := child.cleanup(ctx, false); err != nil {
			return err
		}
	}

	// The parent and the sibling check must be read before the linkage is deleted.
	var parent *Node
	lastChild := false
	if propagate && !n.IsRoot() {
		parent, err = n.Parent(ctx)
		if IsNoParent(err) {
			parent, err = nil, nil
		}
		if err != nil {
			return fmt.Errorf("failed to resolve parent of %s: %w", n.key, err)
		}
		if parent != nil {
			if lastChild, err = n.OnlyStoredChild(ctx); err != nil {
				return fmt.Errorf("failed to check siblings of %s: %w", n.key, err)
			}
		}
	}

	store := n.client.store
	if err := store.Del(ctx, n.ChildrenKey(), n.FinishedChildrenKey(), n.ParentsKey()); err != nil {
		return fmt.Errorf("failed to delete records of %s: %w", n.key, err)
	}

	if n.IsRoot() {
		tree, err := n.Tree()
		if err != nil {
			return err
		}
		n.client.logEvent(logrus.InfoLevel, "node_cleaned", logrus.Fields{"node_key": n.key, "root": true})
		return tree.Unstore(ctx)
	}

	n.client.logEvent(logrus.InfoLevel, "node_cleaned", logrus.Fields{"node_key": n.key, "cascade": lastChild})
	if parent == nil {
		return nil
	}

	if err := store.SRem(ctx, parent.ChildrenKey(), n.key); err != nil {
		return fmt.Errorf("failed to remove %s from parent children: %w", n.key, err)
	}
	if err := store.SRem(ctx, parent.FinishedChildrenKey(), n.key); err != nil {
		return fmt.Errorf("failed to remove %s from parent finished children: %w", n.key, err)
	}

	if lastChild {
		return parent.cleanup(ctx, true)
	}
	return nil
}

// purgeCandidates returns the stored children plus any member of the children
// set that has no parent linkage, so that partially registered children are
// purged as well.
func (n *Node) purgeCandidates(ctx context.Context) ([]*Node, error) {
	stored, err := n.StoredChildren(ctx)
	if err != nil {
		return nil, err
	}
	listed, err := n.membersOf(ctx, n.ChildrenKey())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored))
	for _, c := range stored {
		seen[c.key] = struct{}{}
	}
	for _, c := range listed {
		if _, dup := seen[c.key]; dup {
			continue
		}
		seen[c.key] = struct{}{}
		stored = append(stored, c)
	}
	return stored, nil
}
