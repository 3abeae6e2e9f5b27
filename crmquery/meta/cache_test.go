package meta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/crmquery/crmquery/codec"
	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(store storage.Store, clk *clock) *Cache {
	opts := DefaultCacheOptions()
	if clk != nil {
		opts.Now = clk.Now
	}
	return NewCache(store, opts)
}

func TestCacheGetUnknown(t *testing.T) {
	c := newTestCache(nil, nil)
	s, err := c.Get(context.Background(), "Candidate")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCacheMergePersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := newTestCache(store, nil)

	_, err := c.Merge(ctx, "Candidate", schemaOf("", "id", "name"))
	require.NoError(t, err)
	s, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "email"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email"}, s.Names())
	assert.Equal(t, "Candidate", s.Entity)
	assert.NotZero(t, s.DateCached)

	// a second cache over the same store sees the snapshot
	other := newTestCache(store, nil)
	loaded, err := other.Get(ctx, "Candidate")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"id", "name", "email"}, loaded.Names())

	entities, err := other.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Candidate"}, entities)
}

func TestCacheCodecHeader(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	opts := DefaultCacheOptions()
	opts.Codec = codec.MsgPack{}
	packed := NewCache(store, opts)
	_, err := packed.Merge(ctx, "JobOrder", &Schema{Fields: []Descriptor{
		{Name: "id"}, {Name: "owner", AssociatedEntity: schemaOf("CorporateUser", "id")},
	}})
	require.NoError(t, err)

	// default go-json cache still reads the msgpack snapshot
	s, err := newTestCache(store, nil).Get(ctx, "JobOrder")
	require.NoError(t, err)
	require.NotNil(t, s)
	owner, ok := s.Field("owner")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, owner.AssociatedEntity.Names())
}

func TestCacheCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, Key("Candidate"), []byte("gob\nxx")))
	_, err := newTestCache(store, nil).Get(ctx, "Candidate")
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrCodec))
}

func TestCacheConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(nil, nil)
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", fmt.Sprintf("f%d", i), "id"))
			assert.NoError(t, err)
			// readers never see a partial snapshot
			s, err := c.Get(ctx, "Candidate")
			assert.NoError(t, err)
			if assert.NotNil(t, s) {
				_, ok := s.Field("id")
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()
	s, err := c.Get(ctx, "Candidate")
	require.NoError(t, err)
	assert.Len(t, s.Fields, n+1)
	for i := 0; i < n; i++ {
		_, ok := s.Field(fmt.Sprintf("f%d", i))
		assert.True(t, ok, "f%d lost", i)
	}
}

func TestCacheFresh(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Unix(1700000000, 0)}
	c := newTestCache(nil, clk)
	assert.False(t, c.Fresh(ctx, "Candidate"))

	_, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "id"))
	require.NoError(t, err)
	assert.True(t, c.Fresh(ctx, "Candidate"))

	clk.Advance(23 * time.Hour)
	assert.True(t, c.Fresh(ctx, "Candidate"))
	clk.Advance(2 * time.Hour)
	assert.False(t, c.Fresh(ctx, "Candidate"))
}

func TestCacheValidate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(nil, nil)
	for entity, stamp := range map[string]Timestamp{"Candidate": 100, "JobOrder": 200, "Placement": 300} {
		s := schemaOf(entity, "id")
		s.DateLastModified = stamp
		_, err := c.Merge(ctx, entity, s)
		require.NoError(t, err)
	}

	evicted, err := c.Validate(ctx, []Version{
		{Entity: "Candidate", DateLastModified: 100}, // unchanged
		{Entity: "JobOrder", DateLastModified: 201},  // changed
		{Entity: "Placement"},                        // no timestamp
		{Entity: "Lead", DateLastModified: 5},        // never cached
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"JobOrder", "Placement"}, evicted)

	s, _ := c.Get(ctx, "Candidate")
	assert.NotNil(t, s)
	s, _ = c.Get(ctx, "JobOrder")
	assert.Nil(t, s)
	entities, err := c.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Candidate"}, entities)
}

func TestCacheRemove(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(nil, nil)
	_, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "id"))
	require.NoError(t, err)
	require.NoError(t, c.Remove(ctx, "Candidate"))
	s, err := c.Get(ctx, "Candidate")
	require.NoError(t, err)
	assert.Nil(t, s)
}

type failingStore struct {
	*storage.Memory
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestCacheMergeKeepsSnapshotOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(failingStore{storage.NewMemory()}, nil)
	s, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "id"))
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrIO))
	require.NotNil(t, s)
	got, err := c.Get(ctx, "Candidate")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, got.Names())
}

// flakyStore fails the first reads, then serves the wrapped store
type flakyStore struct {
	*storage.Memory
	mu        sync.Mutex
	failReads int
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failReads > 0
	if fail {
		f.failReads--
	}
	f.mu.Unlock()
	if fail {
		return nil, false, errors.New("connection reset")
	}
	return f.Memory.Get(ctx, key)
}

func TestCacheMergeAfterFailedReadKeepsStoredFields(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: storage.NewMemory()}
	_, err := newTestCache(store, nil).Merge(ctx, "Candidate", schemaOf("Candidate", "id", "name", "email"))
	require.NoError(t, err)

	store.failReads = 1
	c := newTestCache(store, nil)
	_, err = c.Merge(ctx, "Candidate", schemaOf("Candidate", "phone"))
	require.Error(t, err)
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrIO))

	// the stored snapshot is untouched and the next merge sees it
	s, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "phone"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email", "phone"}, s.Names())

	fresh, err := newTestCache(store, nil).Get(ctx, "Candidate")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email", "phone"}, fresh.Names())
}

func TestCacheMergeReplacesCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, Key("Candidate"), []byte("gob\nxx")))
	c := newTestCache(store, nil)
	s, err := c.Merge(ctx, "Candidate", schemaOf("Candidate", "id"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, s.Names())
}
