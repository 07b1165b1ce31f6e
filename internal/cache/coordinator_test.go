package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type payload struct {
	Name string `json:"name"`
}

func TestCoordinator_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	loaderCalls := 0
	load := func() (interface{}, error) {
		loaderCalls++
		return &payload{Name: "from-store"}, nil
	}

	var first payload
	err := coord.ReadThrough(ctx, "task:abc", time.Minute, &first, load)
	assert.NoError(t, err)
	assert.Equal(t, "from-store", first.Name)
	assert.Equal(t, 1, loaderCalls)

	// Second read is served from the cache, the loader stays untouched.
	var second payload
	err = coord.ReadThrough(ctx, "task:abc", time.Minute, &second, load)
	assert.NoError(t, err)
	assert.Equal(t, "from-store", second.Name)
	assert.Equal(t, 1, loaderCalls)
}

func TestCoordinator_ReadThrough_LoaderErrorIsNeverCached(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	wantErr := errors.New("record not found")
	var dest payload
	err := coord.ReadThrough(ctx, "task:missing", time.Minute, &dest, func() (interface{}, error) {
		return nil, wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 0, mem.Len())

	// A later successful load is not masked by a cached negative.
	err = coord.ReadThrough(ctx, "task:missing", time.Minute, &dest, func() (interface{}, error) {
		return &payload{Name: "created-later"}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "created-later", dest.Name)
}

func TestCoordinator_ReadThrough_CorruptEntryFallsBackToLoader(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	assert.NoError(t, mem.Set(ctx, "task:bad", []byte("{not-json"), time.Minute))

	var dest payload
	err := coord.ReadThrough(ctx, "task:bad", time.Minute, &dest, func() (interface{}, error) {
		return &payload{Name: "reloaded"}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "reloaded", dest.Name)

	// The corrupt entry was replaced by the fresh one.
	data, _ := mem.Get(ctx, "task:bad")
	assert.JSONEq(t, `{"name":"reloaded"}`, string(data))
}

func TestCoordinator_WriteThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	// Warm a stale entity entry and two listing pages.
	assert.NoError(t, mem.Set(ctx, "task:abc", []byte(`{"name":"stale"}`), time.Minute))
	assert.NoError(t, mem.Set(ctx, "tasks:list:search=none:page=1:limit=10", []byte("[]"), time.Minute))
	assert.NoError(t, mem.Set(ctx, "tasks:list:search=x:page=2:limit=10", []byte("[]"), time.Minute))
	assert.NoError(t, mem.Set(ctx, "users:list:search=none:page=1:limit=10", []byte("[]"), time.Minute))

	coord.WriteThrough(ctx, "task:abc", &payload{Name: "fresh"}, time.Minute, "tasks:list:")

	data, _ := mem.Get(ctx, "task:abc")
	assert.JSONEq(t, `{"name":"fresh"}`, string(data))

	// Every task listing page is gone; the user listing survives.
	gone, _ := mem.Get(ctx, "tasks:list:search=none:page=1:limit=10")
	assert.Nil(t, gone)
	gone, _ = mem.Get(ctx, "tasks:list:search=x:page=2:limit=10")
	assert.Nil(t, gone)
	kept, _ := mem.Get(ctx, "users:list:search=none:page=1:limit=10")
	assert.NotNil(t, kept)
}

func TestCoordinator_Lookup(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	var dest payload
	assert.False(t, coord.Lookup(ctx, "user:email:a@b.c", &dest))

	coord.Put(ctx, "user:email:a@b.c", &payload{Name: "alice"}, time.Minute)
	assert.True(t, coord.Lookup(ctx, "user:email:a@b.c", &dest))
	assert.Equal(t, "alice", dest.Name)
}

func TestCoordinator_Evict(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coord := NewCoordinator(mem, zerolog.Nop())

	coord.Put(ctx, "user:1", &payload{Name: "a"}, time.Minute)
	coord.Put(ctx, "user:email:a@b.c", &payload{Name: "a"}, time.Minute)

	coord.Evict(ctx, "user:1", "user:email:a@b.c")
	assert.Equal(t, 0, mem.Len())
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	assert.NoError(t, mem.Set(ctx, "token:1", []byte("tok"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	data, err := mem.Get(ctx, "token:1")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemory_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	assert.NoError(t, mem.Set(ctx, "tasks:assigned:u1:page=1", []byte("a"), 0))
	assert.NoError(t, mem.Set(ctx, "tasks:assigned:u1:page=2", []byte("b"), 0))
	assert.NoError(t, mem.Set(ctx, "tasks:assigned:u2:page=1", []byte("c"), 0))

	n, err := mem.DeleteByPrefix(ctx, "tasks:assigned:u1:")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, mem.Len())
}
