package jobtree

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store := NewRedisStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_Ping(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewRedisStoreFromURL(t *testing.T) {
	_, mr := setupTestStore(t)

	store, err := NewRedisStoreFromURL("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = NewRedisStoreFromURL("not a url")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestRedisStore_GetSet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found, "absent key is not an error")

	require.NoError(t, store.Set(ctx, "k", "v"))
	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisStore_DelIsIdempotent(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, store.Del(ctx, "a", "never-existed"))
	require.NoError(t, store.Del(ctx, "a"))
	require.NoError(t, store.Del(ctx))
	assert.False(t, mr.Exists("a"))
}

func TestRedisStore_Sets(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SAdd(ctx, "s", "x"))
	require.NoError(t, store.SAdd(ctx, "s", "y"))
	require.NoError(t, store.SAdd(ctx, "s", "x"))
	require.NoError(t, store.SRem(ctx, "s", "absent"))

	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"x", "y"}, members)

	members, err = store.SMembers(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)

	isMember, err := store.SIsMember(ctx, "s", "x")
	require.NoError(t, err)
	assert.True(t, isMember)
	isMember, err = store.SIsMember(ctx, "s", "absent")
	require.NoError(t, err)
	assert.False(t, isMember)
	isMember, err = store.SIsMember(ctx, "missing", "x")
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRedisStore_KeysWithPrefix(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	keys := []string{
		`JobsTree:Node:Parents:JobsTree:Node:["tree1","job2",1]`,
		`JobsTree:Node:Parents:JobsTree:Node:["tree1","job2",2]`,
		`JobsTree:Node:Parents:JobsTree:Node:["tree2","job2",1]`,
		`JobsTree:Node:Parents:JobsTree:Node:*tree1`,
		`JobsTree:Node:["tree1","job1"]:children`,
	}
	for _, k := range keys {
		require.NoError(t, mr.Set(k, "v"))
	}

	got, err := store.KeysWithPrefix(ctx, `JobsTree:Node:Parents:JobsTree:Node:["tree1",`)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, keys[:2], got, "brackets and quotes are matched literally")

	got, err = store.KeysWithPrefix(ctx, `JobsTree:Node:Parents:JobsTree:Node:*`)
	require.NoError(t, err)
	assert.Equal(t, []string{keys[3]}, got, "glob characters in the prefix are literal")
}

func TestRedisStore_KeysWithPrefixScansPastBatch(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < scanBatchSize*3; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("p:%d", i), "v"))
	}
	require.NoError(t, mr.Set("q:other", "v"))

	got, err := store.KeysWithPrefix(ctx, "p:")
	require.NoError(t, err)
	assert.Len(t, got, scanBatchSize*3)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\[b\]c\*d\?e\\f`, escapeGlob(`a[b]c*d?e\f`))
	assert.Equal(t, `plain:key`, escapeGlob(`plain:key`))
}
