package jobtree

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Node is an in-memory handle on one node of a job tree. Several handles may
// refer to the same node; they share state only through the store.
//
// A node is stored while its parent linkage, its children set or (for roots)
// its tree registration exists. Unstoring marks it finished without losing the
// parent linkage; only Cleanup removes that.
type Node struct {
	client     *Client
	def        *JobDefinition
	resources  Resources
	serialized string
	key        string
	parent     *Node
}

// Name returns the job name.
func (n *Node) Name() string { return n.def.name }

// TreeName returns the name of the tree the node belongs to.
func (n *Node) TreeName() string { return n.def.tree.name }

// Definition returns the job definition the node was spawned from.
func (n *Node) Definition() *JobDefinition { return n.def }

// Resources returns the canonical resources of the node.
func (n *Node) Resources() Resources { return n.resources }

// IsRoot reports whether the node is an instance of its tree's root job.
func (n *Node) IsRoot() bool { return n.def.IsRoot() }

// Serialize returns the canonical array form ["tree","job",r0,...].
func (n *Node) Serialize() string { return n.serialized }

// Key returns the storage key of the node.
func (n *Node) Key() string { return n.key }

// ChildrenKey returns the key of the node's stored children set.
func (n *Node) ChildrenKey() string { return ChildrenKey(n.key) }

// FinishedChildrenKey returns the key of the node's finished children set.
func (n *Node) FinishedChildrenKey() string { return FinishedChildrenKey(n.key) }

// ParentsKey returns the key holding the node's parent linkage.
func (n *Node) ParentsKey() string { return ParentsKey(n.client.namespace, n.key) }

func (n *Node) String() string { return n.key }

// Tree returns the tree handle a root node stands for.
// Returns an error for non-root nodes.
func (n *Node) Tree() (*Tree, error) {
	if !n.IsRoot() {
		return nil, fmt.Errorf("node %s is not a root", n.key)
	}
	return n.client.newTree(n.def.tree, n.resources)
}

// Store records the node as active: its parent linkage and its membership of
// the parent's children set. Storing a root registers its tree instead.
// Storing twice leaves the same facts in place.
func (n *Node) Store(ctx context.Context) error {
	if n.IsRoot() {
		tree, err := n.Tree()
		if err != nil {
			return err
		}
		return tree.Store(ctx)
	}

	parent, err := n.Parent(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve parent of %s: %w", n.key, err)
	}

	store := n.client.store
	if err := store.Set(ctx, n.ParentsKey(), parent.key); err != nil {
		return fmt.Errorf("failed to record parent of %s: %w", n.key, err)
	}
	if err := store.SAdd(ctx, parent.ChildrenKey(), n.key); err != nil {
		return fmt.Errorf("failed to add %s to parent children: %w", n.key, err)
	}

	n.client.logEvent(logrus.DebugLevel, "node_stored", logrus.Fields{
		"node_key":   n.key,
		"parent_key": parent.key,
	})
	return nil
}

// Unstore marks the node finished: it leaves the parent's children set and
// joins the parent's finished children set. The parent linkage is kept.
// Unstoring a root is a no-op; roots are released by Cleanup.
func (n *Node) Unstore(ctx context.Context) error {
	if n.IsRoot() {
		return nil
	}

	parent, err := n.Parent(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve parent of %s: %w", n.key, err)
	}

	store := n.client.store
	if err := store.SRem(ctx, parent.ChildrenKey(), n.key); err != nil {
		return fmt.Errorf("failed to remove %s from parent children: %w", n.key, err)
	}
	if err := store.SAdd(ctx, parent.FinishedChildrenKey(), n.key); err != nil {
		return fmt.Errorf("failed to add %s to parent finished children: %w", n.key, err)
	}

	n.client.logEvent(logrus.DebugLevel, "node_unstored", logrus.Fields{
		"node_key":   n.key,
		"parent_key": parent.key,
	})
	return nil
}

// Exists reports whether the node has a parent linkage or a children set,
// or, for a root, whether its tree is launched.
func (n *Node) Exists(ctx context.Context) (bool, error) {
	store := n.client.store

	for _, key := range []string{n.ParentsKey(), n.ChildrenKey()} {
		found, err := store.Exists(ctx, key)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}

	if !n.IsRoot() {
		return false, nil
	}
	tree, err := n.Tree()
	if err != nil {
		return false, err
	}
	return tree.Exists(ctx)
}

// Parent returns the parent handle. An explicit parent given at spawn time
// wins; otherwise the recorded linkage is read, and failing that the parent
// is derived from the declared hierarchy. Roots have no parent (nil, nil).
// The resolved parent is cached on the handle.
func (n *Node) Parent(ctx context.Context) (*Node, error) {
	if n.parent != nil {
		return n.parent, nil
	}
	if n.IsRoot() {
		return nil, nil
	}

	parentKey, found, err := n.client.store.Get(ctx, n.ParentsKey())
	if err != nil {
		return nil, err
	}

	var parent *Node
	if found {
		parent, err = n.client.NodeFromKey(parentKey)
	} else {
		parent, err = n.declaredParent()
	}
	if err != nil {
		return nil, err
	}

	n.parent = parent
	return parent, nil
}

// declaredParent inverts the parent job's child rule: it looks for the
// longest prefix of the node's resources from which the rule yields this node.
func (n *Node) declaredParent() (*Node, error) {
	parentDef := n.def.parent
	for cut := len(n.resources); cut >= 0; cut-- {
		candidate := n.resources[:cut:cut]
		for _, spec := range parentDef.ChildSpecs(candidate) {
			if spec.Job != n.def.name {
				continue
			}
			derived, err := NormalizeResources(append(candidate, spec.Append...)...)
			if err != nil {
				continue
			}
			if derived.Equal(n.resources) {
				return n.client.SpawnJob(parentDef, candidate, nil)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoParent, n.key)
}

// Children spawns, without storing, the children the child rule declares for
// this node's resources.
func (n *Node) Children() ([]*Node, error) {
	specs := n.def.ChildSpecs(n.resources)
	children := make([]*Node, 0, len(specs))
	for _, spec := range specs {
		if !n.def.declaresChild(spec.Job) {
			return nil, fmt.Errorf("%w: %s is not declared beneath %s/%s",
				ErrUnknownJob, spec.Job, n.def.tree.name, n.def.name)
		}
		def, err := n.def.tree.Find(spec.Job)
		if err != nil {
			return nil, err
		}

		resources := make(Resources, 0, len(n.resources)+len(spec.Append))
		resources = append(resources, n.resources...)
		resources = append(resources, spec.Append...)

		child, err := n.client.SpawnJob(def, resources, n)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// StoredChildren returns every node whose recorded parent is this node and
// whose job is declared beneath this node's job, sorted by key. It scans parent
// linkages rather than the children set, so unstored children are included
// and the node itself need not have been stored.
func (n *Node) StoredChildren(ctx context.Context) ([]*Node, error) {
	if n.def.IsLeaf() {
		return nil, nil
	}

	ns := n.client.namespace
	store := n.client.store

	var linkKeys []string
	for _, childDef := range n.def.children {
		// ["tree","job" also prefixes ["tree","job2",...]; ParseNodeKey below filters those
		jobPrefix, err := encodeArray([]any{n.def.tree.name, childDef.name})
		if err != nil {
			return nil, err
		}
		keys, err := store.KeysWithPrefix(ctx, ParentsKey(ns, NodeKey(ns, strings.TrimSuffix(jobPrefix, "]"))))
		if err != nil {
			return nil, err
		}
		linkKeys = append(linkKeys, keys...)
	}
	sort.Strings(linkKeys)

	var children []*Node
	seen := make(map[string]struct{}, len(linkKeys))
	for _, linkKey := range linkKeys {
		if _, dup := seen[linkKey]; dup {
			continue
		}
		seen[linkKey] = struct{}{}

		childKey := strings.TrimPrefix(linkKey, ParentsKeyPrefix(ns))
		id, err := ParseNodeKey(ns, childKey)
		if err != nil {
			return nil, err
		}
		if id.Tree != n.def.tree.name || !n.def.declaresChild(id.Job) {
			continue
		}

		parentKey, found, err := store.Get(ctx, linkKey)
		if err != nil {
			return nil, err
		}
		if !found || parentKey != n.key {
			continue
		}

		child, err := n.client.Spawn(id.Tree, id.Job, id.Resources, n)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// OnlyStoredChild reports whether no sibling other than this node is stored
// under the parent. A root has no siblings.
func (n *Node) OnlyStoredChild(ctx context.Context) (bool, error) {
	parent, err := n.Parent(ctx)
	if err != nil {
		return false, err
	}
	if parent == nil {
		return true, nil
	}

	siblings, err := parent.StoredChildren(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range siblings {
		if s.key != n.key {
			return false, nil
		}
	}
	return true, nil
}

// FinishedChildren returns the children that unstored themselves, sorted by key.
func (n *Node) FinishedChildren(ctx context.Context) ([]*Node, error) {
	return n.membersOf(ctx, n.FinishedChildrenKey())
}

// ActiveChildren returns the members of the children set, the stored
// children that have not finished yet, sorted by key.
func (n *Node) ActiveChildren(ctx context.Context) ([]*Node, error) {
	return n.membersOf(ctx, n.ChildrenKey())
}

func (n *Node) membersOf(ctx context.Context, setKey string) ([]*Node, error) {
	members, err := n.client.store.SMembers(ctx, setKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(members)

	nodes := make([]*Node, 0, len(members))
	for _, key := range members {
		id, err := ParseNodeKey(n.client.namespace, key)
		if err != nil {
			return nil, err
		}
		child, err := n.client.Spawn(id.Tree, id.Job, id.Resources, n)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, child)
	}
	return nodes, nil
}

// Finish unstores the node and reports the parent if this was its last active
// child, meaning the parent's own work may now run. Finishing a root cleans up
// the whole tree and returns nil.
func (n *Node) Finish(ctx context.Context) (*Node, error) {
	if n.IsRoot() {
		return nil, n.Cleanup(ctx)
	}

	if err := n.Unstore(ctx); err != nil {
		return nil, err
	}
	parent, err := n.Parent(ctx)
	if err != nil {
		return nil, err
	}

	active, err := n.client.store.SMembers(ctx, parent.ChildrenKey())
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, nil
	}
	return parent, nil
}
