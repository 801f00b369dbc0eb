package jobtree

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Client binds a Store, a JobCatalog and a namespace together. Node and Tree
// handles are spawned from a Client and share its store.
// The client holds no state of its own and can be used concurrently.
type Client struct {
	store     Store
	catalog   JobCatalog
	namespace string
	log       logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithNamespace overrides DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(c *Client) { c.namespace = namespace }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) { c.log = logger }
}

// NewClient creates a client over the given store and catalog.
// Returns an error if either is nil or the namespace is empty.
func NewClient(store Store, catalog JobCatalog, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}

	c := &Client{
		store:     store,
		catalog:   catalog,
		namespace: DefaultNamespace,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return c, nil
}

// Namespace returns the key prefix of this client.
func (c *Client) Namespace() string { return c.namespace }

// Catalog returns the catalog jobs are resolved against.
func (c *Client) Catalog() JobCatalog { return c.catalog }

// Spawn creates a handle for the named job with the given resources.
// parent may be nil, in which case it is resolved lazily. A non-nil parent
// must be a node of the job's declared parent job.
func (c *Client) Spawn(treeName, jobName string, resources Resources, parent *Node) (*Node, error) {
	def, err := c.catalog.LookupJob(treeName, jobName)
	if err != nil {
		return nil, err
	}
	return c.SpawnJob(def, resources, parent)
}

// SpawnJob creates a handle for a job definition. Resources are canonicalized.
func (c *Client) SpawnJob(def *JobDefinition, resources Resources, parent *Node) (*Node, error) {
	if parent != nil && parent.def != def.parent {
		return nil, fmt.Errorf("%w: %s is not declared beneath %s", ErrUnknownJob, def.name, parent.def.name)
	}

	normalized, err := NormalizeResources(resources...)
	if err != nil {
		return nil, err
	}

	serialized, err := Serialize(def.tree.name, def.name, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize node: %w", err)
	}

	return &Node{
		client:     c,
		def:        def,
		resources:  normalized,
		serialized: serialized,
		key:        NodeKey(c.namespace, serialized),
		parent:     parent,
	}, nil
}

// NodeFromKey rebuilds a handle from a stored node key. The returned handle
// has no cached parent.
func (c *Client) NodeFromKey(key string) (*Node, error) {
	id, err := ParseNodeKey(c.namespace, key)
	if err != nil {
		return nil, err
	}
	return c.Spawn(id.Tree, id.Job, id.Resources, nil)
}

// Tree creates a handle for one instantiation of the named tree.
func (c *Client) Tree(treeName string, resources Resources) (*Tree, error) {
	def, err := c.catalog.LookupTree(treeName)
	if err != nil {
		return nil, err
	}
	return c.newTree(def, resources)
}

func (c *Client) newTree(def *TreeDefinition, resources Resources) (*Tree, error) {
	normalized, err := NormalizeResources(resources...)
	if err != nil {
		return nil, err
	}

	values := make(Resources, 0, len(normalized)+1)
	values = append(values, def.name)
	values = append(values, normalized...)
	serialized, err := encodeArray(values)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tree: %w", err)
	}

	return &Tree{
		client:    c,
		def:       def,
		resources: normalized,
		key:       TreeKey(c.namespace, serialized),
	}, nil
}

// Register adds a tree key to the launched trees set.
func (c *Client) Register(ctx context.Context, treeKey string) error {
	if err := c.store.SAdd(ctx, LaunchedTreesKey(c.namespace), treeKey); err != nil {
		return fmt.Errorf("failed to register tree: %w", err)
	}
	c.logEvent(logrus.InfoLevel, "tree_registered", logrus.Fields{"tree_key": treeKey})
	return nil
}

// Deregister removes a tree key from the launched trees set.
// Deregistering an absent tree is not an error.
func (c *Client) Deregister(ctx context.Context, treeKey string) error {
	if err := c.store.SRem(ctx, LaunchedTreesKey(c.namespace), treeKey); err != nil {
		return fmt.Errorf("failed to deregister tree: %w", err)
	}
	c.logEvent(logrus.InfoLevel, "tree_deregistered", logrus.Fields{"tree_key": treeKey})
	return nil
}

// IsLaunched reports whether a tree key is registered.
func (c *Client) IsLaunched(ctx context.Context, treeKey string) (bool, error) {
	launched, err := c.store.SIsMember(ctx, LaunchedTreesKey(c.namespace), treeKey)
	if err != nil {
		return false, fmt.Errorf("failed to read launched trees: %w", err)
	}
	return launched, nil
}

// LaunchedTrees returns every registered tree key, sorted.
func (c *Client) LaunchedTrees(ctx context.Context) ([]string, error) {
	trees, err := c.store.SMembers(ctx, LaunchedTreesKey(c.namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to read launched trees: %w", err)
	}
	sort.Strings(trees)
	return trees, nil
}

func (c *Client) logEvent(level logrus.Level, eventType string, fields logrus.Fields) {
	fields["component"] = "jobtree"
	fields["event_type"] = eventType
	fields["namespace"] = c.namespace
	c.log.WithFields(fields).Log(level, eventType)
}
