package meta

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/fields"
	"github.com/nonibytes/crmquery/crmquery/storage"
)

// fakeServer answers meta requests with descriptors for the requested root fields
type fakeServer struct {
	mu       sync.Mutex
	requests []Request
	calls    atomic.Int32
	gate     chan struct{}
	err      error
}

func (f *fakeServer) FetchMeta(ctx context.Context, req Request) (*Schema, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := &Schema{Entity: req.Entity, Label: req.Entity}
	for _, n := range fields.Parse(req.Fields) {
		d := Descriptor{Name: n.FieldName()}
		if b, ok := n.(fields.Branch); ok {
			d.AssociatedEntity = &Schema{}
			for _, c := range b.Children {
				d.AssociatedEntity.Fields = append(d.AssociatedEntity.Fields, Descriptor{Name: c.FieldName()})
			}
		}
		resp.Fields = append(resp.Fields, d)
	}
	return resp, nil
}

func (f *fakeServer) lastFields() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Fields
}

func TestServiceFetchesOnlyResidual(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	svc := NewService(newTestCache(nil, nil), srv)

	got, err := svc.Get(ctx, "Candidate", []string{"name", "owner(id)", "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "owner"}, names(got))
	assert.Equal(t, int32(1), srv.calls.Load())
	assert.Equal(t, "name,owner(id),id", srv.lastFields())

	// everything known: no fetch
	got, err = svc.Get(ctx, "Candidate", []string{"id", "owner(id)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "owner"}, names(got))
	assert.Equal(t, int32(1), srv.calls.Load())

	// only the unknown parts are requested
	_, err = svc.Get(ctx, "Candidate", []string{"id", "email", "owner(id,firstName)"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.calls.Load())
	assert.Equal(t, "email,owner(firstName)", srv.lastFields())

	residual, err := svc.Missing(ctx, "Candidate", []string{"id", "owner(firstName,lastName)"})
	require.NoError(t, err)
	assert.Equal(t, "owner(lastName)", residual)
}

func TestServiceLayoutAlwaysFetches(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	svc := NewService(newTestCache(nil, nil), srv)
	_, err := svc.Get(ctx, "JobOrder", []string{"id"})
	require.NoError(t, err)
	_, err = svc.GetLayout(ctx, "JobOrder", []string{"id"}, "RecordEdit")
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.calls.Load())
	srv.mu.Lock()
	last := srv.requests[1]
	srv.mu.Unlock()
	assert.Equal(t, "RecordEdit", last.Layout)
	assert.Equal(t, "*", last.Fields)
	assert.Equal(t, StyleFull, last.Style)
}

func TestServiceSharesConcurrentFetches(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{gate: make(chan struct{})}
	svc := NewService(newTestCache(nil, nil), srv)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Get(ctx, "Placement", []string{"id", "status"})
			assert.NoError(t, err)
			assert.Equal(t, []string{"id", "status"}, names(got))
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(srv.gate)
	wg.Wait()
	assert.Less(t, srv.calls.Load(), int32(n))
}

func TestServiceFetchError(t *testing.T) {
	srv := &fakeServer{err: errors.New("503")}
	svc := NewService(newTestCache(nil, nil), srv)
	_, err := svc.Get(context.Background(), "Candidate", []string{"id"})
	require.Error(t, err)
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrFetch))
	assert.True(t, strings.Contains(err.Error(), "503"))
}

func TestServiceRateLimit(t *testing.T) {
	svc := NewService(newTestCache(nil, nil), &fakeServer{})
	svc.Limiter = rate.NewLimiter(rate.Every(time.Hour), 0)
	_, err := svc.Get(context.Background(), "Candidate", []string{"id"})
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrFetch))
}

func TestServiceWithoutFetcher(t *testing.T) {
	svc := NewService(newTestCache(nil, nil), nil)
	_, err := svc.Get(context.Background(), "Candidate", []string{"id"})
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrUsage))
}

func TestServiceGetMany(t *testing.T) {
	srv := &fakeServer{}
	svc := NewService(newTestCache(nil, nil), srv)
	svc.Concurrency = 2
	got, err := svc.GetMany(context.Background(), map[string][]string{
		"Candidate": {"id", "name"},
		"JobOrder":  {"title", "id"},
		"Placement": {"status"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"id", "title"}, names(got["JobOrder"]))
	assert.Equal(t, []string{"status"}, names(got["Placement"]))
	assert.Equal(t, int32(3), srv.calls.Load())
}

func TestServiceValidate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestCache(nil, nil), FetcherFunc(func(ctx context.Context, req Request) (*Schema, error) {
		return &Schema{Entity: req.Entity, DateLastModified: 7, Fields: []Descriptor{{Name: "id"}}}, nil
	}))
	_, err := svc.Get(ctx, "Candidate", []string{"id"})
	require.NoError(t, err)
	evicted, err := svc.Validate(ctx, []Version{{Entity: "Candidate", DateLastModified: 8}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Candidate"}, evicted)
}

func TestServiceStoreReadErrorSkipsFetch(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: storage.NewMemory(), failReads: 1}
	srv := &fakeServer{}
	svc := NewService(newTestCache(store, nil), srv)

	_, err := svc.Get(ctx, "Candidate", []string{"id"})
	assert.True(t, cqerrors.IsCode(err, cqerrors.ErrIO))
	assert.Equal(t, int32(0), srv.calls.Load())

	got, err := svc.Get(ctx, "Candidate", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, names(got))
}
