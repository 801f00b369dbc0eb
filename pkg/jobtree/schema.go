package jobtree

import "fmt"

// Redis key pattern helpers
//
// All keys live under a single namespace so that several job-tree deployments
// can share one Redis server without interference.
//
// Key pattern: {namespace}:Node:[tree,job,r0,r1,...]
// Relations hang off the node key: {node_key}:children, {node_key}:finished_children

// DefaultNamespace is the top-level prefix used when no namespace is configured.
const DefaultNamespace = "JobsTree"

// NodeKeyPrefix returns the prefix shared by every node key.
// Pattern: {namespace}:Node:
func NodeKeyPrefix(namespace string) string {
	return fmt.Sprintf("%s:Node:", namespace)
}

// NodeKey returns the storage key of a node from its serialized identity.
// Pattern: {namespace}:Node:{serialized}
func NodeKey(namespace, serialized string) string {
	return NodeKeyPrefix(namespace) + serialized
}

// ParentsKeyPrefix returns the prefix of every parent linkage record.
// Pattern: {namespace}:Node:Parents:
func ParentsKeyPrefix(namespace string) string {
	return fmt.Sprintf("%s:Node:Parents:", namespace)
}

// ParentsKey returns the key holding the parent node key of nodeKey.
// Pattern: {namespace}:Node:Parents:{node_key}
func ParentsKey(namespace, nodeKey string) string {
	return ParentsKeyPrefix(namespace) + nodeKey
}

// ChildrenKey returns the key of a node's stored children set.
// Pattern: {node_key}:children
func ChildrenKey(nodeKey string) string {
	return nodeKey + ":children"
}

// FinishedChildrenKey returns the key of a node's finished children set.
// Pattern: {node_key}:finished_children
func FinishedChildrenKey(nodeKey string) string {
	return nodeKey + ":finished_children"
}

// LaunchedTreesKey returns the key of the launched trees set.
// Pattern: {namespace}:Tree:Launched
func LaunchedTreesKey(namespace string) string {
	return fmt.Sprintf("%s:Tree:Launched", namespace)
}

// TreeKey returns the key identifying one launched tree.
// Pattern: {namespace}:Tree:[tree,r0,r1,...]
func TreeKey(namespace, serialized string) string {
	return fmt.Sprintf("%s:Tree:%s", namespace, serialized)
}
