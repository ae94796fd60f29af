package blobstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			data := []byte("matched groups")
			require.NoError(t, store.Put(ctx, "runs/a.cvm", data))

			// Caller mutation must not leak into the store.
			data[0] = 'M'

			got, err := store.Get(ctx, "runs/a.cvm")
			require.NoError(t, err)
			assert.Equal(t, "matched groups", string(got))

			require.NoError(t, store.Put(ctx, "runs/a.cvm", []byte("v2")))
			got, err = store.Get(ctx, "runs/a.cvm")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(got))
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "runs/missing.cvm")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NoError(t, store.Delete(context.Background(), "runs/missing.cvm"))
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, store.Put(ctx, "runs/b.cvm", []byte("b")))
			require.NoError(t, store.Put(ctx, "runs/a.cvm", []byte("a")))
			require.NoError(t, store.Put(ctx, "other/c.cvm", []byte("c")))

			names, err = store.List(ctx, "runs/")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/a.cvm", "runs/b.cvm"}, names)

			require.NoError(t, store.Delete(ctx, "runs/a.cvm"))
			names, err = store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"other/c.cvm", "runs/b.cvm"}, names)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			assert.ErrorIs(t, store.Put(ctx, "x", []byte("x")), context.Canceled)
			_, err := store.Get(ctx, "x")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a'+i)) + ".cvm"
			assert.NoError(t, store.Put(ctx, name, []byte{byte(i)}))
			_, err := store.Get(ctx, name)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, store.Len())
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "../outside.cvm", []byte("x")))
	_, err := store.Get(ctx, "/etc/passwd")
	assert.Error(t, err)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(t.TempDir() + "/not-created")
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
