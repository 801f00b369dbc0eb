package jobtree

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	catalog, err := NewCatalog(twoLevelTree())
	require.NoError(t, err)
	store := NewRedisStore(&redis.Options{Addr: "localhost:6379"})
	defer store.Close()

	t.Run("defaults", func(t *testing.T) {
		client, err := NewClient(store, catalog)
		require.NoError(t, err)
		assert.Equal(t, DefaultNamespace, client.Namespace())
		assert.Same(t, catalog, client.Catalog())
	})

	t.Run("custom namespace", func(t *testing.T) {
		client, err := NewClient(store, catalog, WithNamespace("Custom"))
		require.NoError(t, err)
		assert.Equal(t, "Custom", client.Namespace())
	})

	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewClient(store, catalog, WithNamespace(""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects nil collaborators", func(t *testing.T) {
		_, err := NewClient(nil, catalog)
		assert.Error(t, err)
		_, err = NewClient(store, nil)
		assert.Error(t, err)
	})
}

func TestClient_Spawn(t *testing.T) {
	client, _ := setupTestClient(t, twoLevelTree())

	t.Run("unknown job", func(t *testing.T) {
		_, err := client.Spawn("tree1", "nope", nil, nil)
		assert.True(t, IsUnknownJob(err))
	})

	t.Run("unknown tree", func(t *testing.T) {
		_, err := client.Spawn("nope", "job1", nil, nil)
		assert.True(t, IsUnknownJob(err))
	})

	t.Run("invalid resources", func(t *testing.T) {
		_, err := client.Spawn("tree1", "job1", Resources{[]int{1}}, nil)
		assert.Error(t, err)
	})
}

func TestClient_SpawnRejectsUndeclaredParent(t *testing.T) {
	client, mr := setupTestClient(t, threeLevelTree())
	ctx := context.Background()

	root := mustSpawn(t, client, "job1", nil, nil)
	_, err := client.Spawn("tree1", "job3", Resources{1}, root)
	require.Error(t, err)
	assert.True(t, IsUnknownJob(err))
	assert.Contains(t, err.Error(), "job3 is not declared beneath job1")

	job2, err := client.Spawn("tree1", "job2", nil, root)
	require.NoError(t, err)
	require.NoError(t, job2.Store(ctx))

	require.NoError(t, root.Cleanup(ctx))
	assert.Empty(t, mr.Keys())
}

func TestClient_NodeFromKey(t *testing.T) {
	client, _ := setupTestClient(t, twoLevelTree())

	node, err := client.NodeFromKey(`JobsTree:Node:["tree1","job2","a",3]`)
	require.NoError(t, err)
	assert.Equal(t, "job2", node.Name())
	assert.Equal(t, Resources{"a", int64(3)}, node.Resources())

	_, err = client.NodeFromKey(`JobsTree:Node:["tree1","job9"]`)
	assert.True(t, IsUnknownJob(err))

	_, err = client.NodeFromKey(`JobsTree:Node:garbage`)
	assert.True(t, IsMalformedKey(err))
}

func TestClient_Registry(t *testing.T) {
	client, mr := setupTestClient(t, twoLevelTree())
	ctx := context.Background()

	require.NoError(t, client.Register(ctx, "b"))
	require.NoError(t, client.Register(ctx, "a"))

	launched, err := client.IsLaunched(ctx, "a")
	require.NoError(t, err)
	assert.True(t, launched)

	trees, err := client.LaunchedTrees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, trees)

	require.NoError(t, client.Deregister(ctx, "a"))
	require.NoError(t, client.Deregister(ctx, "a"), "deregistering twice is not an error")

	launched, err = client.IsLaunched(ctx, "a")
	require.NoError(t, err)
	assert.False(t, launched)

	members, err := mr.Members(LaunchedTreesKey(DefaultNamespace))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestClient_NamespaceIsolation(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	defer mr.Close()

	store := NewRedisStore(&redis.Options{Addr: mr.Addr()})
	defer store.Close()
	catalog, err := NewCatalog(twoLevelTree())
	require.NoError(t, err)

	a, err := NewClient(store, catalog, WithNamespace("A"))
	require.NoError(t, err)
	b, err := NewClient(store, catalog, WithNamespace("B"))
	require.NoError(t, err)

	ctx := context.Background()
	treeA, err := a.Tree("tree1", nil)
	require.NoError(t, err)
	_, err = treeA.Launch(ctx)
	require.NoError(t, err)

	trees, err := b.LaunchedTrees(ctx)
	require.NoError(t, err)
	assert.Empty(t, trees)

	rootB, err := b.Spawn("tree1", "job1", nil, nil)
	require.NoError(t, err)
	children, err := rootB.StoredChildren(ctx)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestClient_LogsLifecycleEvents(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	defer mr.Close()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	store := NewRedisStore(&redis.Options{Addr: mr.Addr()})
	defer store.Close()
	catalog, err := NewCatalog(twoLevelTree())
	require.NoError(t, err)
	client, err := NewClient(store, catalog, WithLogger(logger))
	require.NoError(t, err)

	tree, err := client.Tree("tree1", Resources{5})
	require.NoError(t, err)
	require.NoError(t, tree.Store(context.Background()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tree_registered", entry["event_type"])
	assert.Equal(t, "jobtree", entry["component"])
	assert.Equal(t, `JobsTree:Tree:["tree1",5]`, entry["tree_key"])
}
