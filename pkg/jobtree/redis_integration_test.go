//go:build integration

package jobtree

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

// TestRedis_FullLifecycle launches, finishes and purges a tree against a real
// Redis server, which exercises SCAN MATCH escaping end to end.
func TestRedis_FullLifecycle(t *testing.T) {
	redisURL := setupRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewRedisStoreFromURL(redisURL)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	catalog, err := NewCatalog(threeLevelTree())
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	namespace := "it-" + uuid.New().String()
	client, err := NewClient(store, catalog, WithNamespace(namespace), WithLogger(logger))
	require.NoError(t, err)

	tree, err := client.Tree("tree1", Resources{"batch-7"})
	require.NoError(t, err)
	leaves, err := tree.Launch(ctx)
	require.NoError(t, err)
	require.Len(t, leaves, 2)

	job2, err := leaves[0].Parent(ctx)
	require.NoError(t, err)
	children, err := job2.StoredChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	ready, err := leaves[0].Finish(ctx)
	require.NoError(t, err)
	assert.Nil(t, ready)
	ready, err = leaves[1].Finish(ctx)
	require.NoError(t, err)
	require.NotNil(t, ready)
	assert.Equal(t, "job2", ready.Name())

	root, err := tree.Root()
	require.NoError(t, err)
	require.NoError(t, root.Cleanup(ctx))

	keys, err := store.KeysWithPrefix(ctx, namespace+":")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
