// Package storagetest checks the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/crmquery/crmquery/storage"
)

// Run exercises s; it expects s to start empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "meta/Candidate")
	require.NoError(t, err)
	assert.False(t, ok, "empty store returned a value")

	require.NoError(t, s.Put(ctx, "meta/Candidate", []byte("v1")))
	require.NoError(t, s.Put(ctx, "meta/Candidate", []byte("v2")))
	require.NoError(t, s.Put(ctx, "meta/JobOrder", []byte{0, 1, 2}))
	require.NoError(t, s.Put(ctx, "meta/Placement", []byte("p")))
	require.NoError(t, s.Put(ctx, "other/x", []byte("x")))

	v, ok, err := s.Get(ctx, "meta/Candidate")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), v, "put overwrites")

	v, ok, err = s.Get(ctx, "meta/JobOrder")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2}, v, "binary values survive")

	keys, err := s.Keys(ctx, "meta/")
	require.NoError(t, err)
	assert.Equal(t, []string{"meta/Candidate", "meta/JobOrder", "meta/Placement"}, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, s.Remove(ctx, "meta/Candidate", "meta/Placement", "meta/Missing"))
	keys, err = s.Keys(ctx, "meta/")
	require.NoError(t, err)
	assert.Equal(t, []string{"meta/JobOrder"}, keys)

	require.NoError(t, s.Remove(ctx))
}
