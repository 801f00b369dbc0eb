// Package jobtree records the lifecycle of job dependency trees in Redis.
//
// # Overview
//
// A tree is a hierarchy of jobs declared once (TreeDefinition) and instantiated
// many times with concrete resources. Each instantiated job is a node. A node
// fans out into children through its job's child rule, and a parent can only
// complete once every child has finished. Running the jobs is left to an
// external execution framework; this package tracks which nodes exist, who
// their parents are, which children are still outstanding and when a subtree
// can be purged.
//
// No object graph survives a process restart. Every fact lives in the store
// and handles are rebuilt from keys on demand, so any worker can pick up any
// node.
//
// # Lifecycle
//
//	catalog, _ := jobtree.NewCatalog(def)
//	client, _ := jobtree.NewClient(jobtree.NewRedisStore(opts), catalog)
//
//	tree, _ := client.Tree("import", jobtree.Resources{42})
//	leaves, _ := tree.Launch(ctx)   // register tree, store every node
//
//	// ... a worker runs a leaf ...
//	parent, _ := leaf.Finish(ctx)   // unstore; parent != nil once it is ready
//
//	root, _ := tree.Root()
//	_ = root.Cleanup(ctx)          // purge everything, deregister the tree
//
// # Redis Schema
//
// All keys live under a namespace (default "JobsTree").
//
// Node identity: {ns}:Node:["tree","job",r0,r1,...]
// Parent linkage: {ns}:Node:Parents:{node_key} -> parent node key (string)
// Children: {node_key}:children (set)
// Finished children: {node_key}:finished_children (set)
// Launched trees: {ns}:Tree:Launched (set of {ns}:Tree:["tree",r0,...])
//
// # Consistency
//
// Each primitive is atomic; no operation spanning several primitives is.
// Workers storing siblings concurrently only race on SADD, which is safe.
// Cleanups are idempotent but the decision to cascade upward is taken at a
// point in time; serialize cleanup per tree if a sibling may be stored while
// its parent is being purged.
package jobtree
