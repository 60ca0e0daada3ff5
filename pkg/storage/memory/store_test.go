package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutDelete(t *testing.T) {
	store := NewStore("http://blobs.local")
	obj, err := store.Put(context.Background(), "a/b.png", "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, "http://blobs.local/a/b.png", obj.URL)
	require.True(t, store.Has("a/b.png"))

	require.NoError(t, store.Delete(context.Background(), "a/b.png"))
	require.Zero(t, store.Len())

	store.FailDeletes = true
	require.Error(t, store.Delete(context.Background(), "missing"))
}
