package jobtree

import (
	"context"
	"fmt"
	"sort"
)

// WorkFunc is the work callback of a job. The engine never calls it; it is
// carried for the execution framework that runs nodes.
type WorkFunc func(ctx context.Context, n *Node) error

// ChildSpec names one child a job fans out to, with the values appended to the
// parent's resources to form the child's resources.
type ChildSpec struct {
	Job    string
	Append []any
}

// ChildRule maps a node's resources to the children it spawns.
type ChildRule func(resources Resources) []ChildSpec

// JobDefinition declares one job of a tree. Definitions are immutable once
// the tree has been declared.
type JobDefinition struct {
	name     string
	tree     *TreeDefinition
	parent   *JobDefinition
	children []*JobDefinition
	rule     ChildRule
	work     WorkFunc
}

// JobOption configures a JobDefinition at declaration time.
type JobOption func(*JobDefinition)

// WithChildren sets the child-generation rule of a job.
func WithChildren(rule ChildRule) JobOption {
	return func(j *JobDefinition) { j.rule = rule }
}

// WithWork sets the work callback of a job.
func WithWork(fn WorkFunc) JobOption {
	return func(j *JobDefinition) { j.work = fn }
}

// StaticChildren returns a rule yielding the same specs for every resource list.
func StaticChildren(specs ...ChildSpec) ChildRule {
	return func(Resources) []ChildSpec { return specs }
}

// TreeDefinition declares a named hierarchy of jobs with a single root.
type TreeDefinition struct {
	name string
	root *JobDefinition
	jobs map[string]*JobDefinition
}

// NewTree declares a tree and its root job.
func NewTree(name, rootJob string, opts ...JobOption) *TreeDefinition {
	t := &TreeDefinition{name: name, jobs: make(map[string]*JobDefinition)}
	t.root = t.declare(rootJob, nil, opts)
	return t
}

func (t *TreeDefinition) declare(name string, parent *JobDefinition, opts []JobOption) *JobDefinition {
	if _, dup := t.jobs[name]; dup {
		panic(fmt.Sprintf("jobtree: job %q declared twice in tree %q", name, t.name))
	}
	j := &JobDefinition{name: name, tree: t, parent: parent}
	for _, opt := range opts {
		opt(j)
	}
	t.jobs[name] = j
	if parent != nil {
		parent.children = append(parent.children, j)
	}
	return j
}

// Name returns the tree name.
func (t *TreeDefinition) Name() string { return t.name }

// Root returns the root job of the tree.
func (t *TreeDefinition) Root() *JobDefinition { return t.root }

// Find returns the job with the given name, or ErrUnknownJob.
func (t *TreeDefinition) Find(jobName string) (*JobDefinition, error) {
	j, ok := t.jobs[jobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownJob, t.name, jobName)
	}
	return j, nil
}

// Jobs returns every declared job sorted by name.
func (t *TreeDefinition) Jobs() []*JobDefinition {
	jobs := make([]*JobDefinition, 0, len(t.jobs))
	for _, j := range t.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].name < jobs[b].name })
	return jobs
}

// Node declares a job nested directly beneath j and returns it.
// Job names are unique within a tree; declaring a name twice panics.
func (j *JobDefinition) Node(name string, opts ...JobOption) *JobDefinition {
	return j.tree.declare(name, j, opts)
}

func (j *JobDefinition) Name() string               { return j.name }
func (j *JobDefinition) Tree() *TreeDefinition      { return j.tree }
func (j *JobDefinition) Parent() *JobDefinition     { return j.parent }
func (j *JobDefinition) Children() []*JobDefinition { return j.children }
func (j *JobDefinition) Work() WorkFunc             { return j.work }
func (j *JobDefinition) IsRoot() bool               { return j.parent == nil }
func (j *JobDefinition) IsLeaf() bool               { return len(j.children) == 0 }

// ChildSpecs evaluates the child rule for the given resources.
// A job without a rule has no children.
func (j *JobDefinition) ChildSpecs(resources Resources) []ChildSpec {
	if j.rule == nil {
		return nil
	}
	return j.rule(resources)
}

func (j *JobDefinition) declaresChild(name string) bool {
	for _, c := range j.children {
		if c.name == name {
			return true
		}
	}
	return false
}

// JobCatalog is the read-only view of tree definitions the engine resolves
// job identities against.
type JobCatalog interface {
	LookupTree(treeName string) (*TreeDefinition, error)
	LookupJob(treeName, jobName string) (*JobDefinition, error)
}

// Catalog is an in-memory JobCatalog.
type Catalog struct {
	trees map[string]*TreeDefinition
}

// NewCatalog builds a catalog from tree definitions.
// Returns an error if two trees share a name.
func NewCatalog(trees ...*TreeDefinition) (*Catalog, error) {
	c := &Catalog{trees: make(map[string]*TreeDefinition, len(trees))}
	for _, t := range trees {
		if _, dup := c.trees[t.name]; dup {
			return nil, fmt.Errorf("tree %q declared twice", t.name)
		}
		c.trees[t.name] = t
	}
	return c, nil
}

// LookupTree returns the named tree or ErrUnknownJob.
func (c *Catalog) LookupTree(treeName string) (*TreeDefinition, error) {
	t, ok := c.trees[treeName]
	if !ok {
		return nil, fmt.Errorf("%w: tree %s", ErrUnknownJob, treeName)
	}
	return t, nil
}

// LookupJob returns the named job of the named tree or ErrUnknownJob.
func (c *Catalog) LookupJob(treeName, jobName string) (*JobDefinition, error) {
	t, err := c.LookupTree(treeName)
	if err != nil {
		return nil, err
	}
	return t.Find(jobName)
}

// Trees returns every tree sorted by name.
func (c *Catalog) Trees() []*TreeDefinition {
	trees := make([]*TreeDefinition, 0, len(c.trees))
	for _, t := range c.trees {
		trees = append(trees, t)
	}
	sort.Slice(trees, func(a, b int) bool { return trees[a].name < trees[b].name })
	return trees
}
