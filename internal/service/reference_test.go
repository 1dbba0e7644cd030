package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/emrgen/refgraph/internal/refs"
	"github.com/emrgen/refgraph/internal/resolver"
	"github.com/emrgen/refgraph/internal/signal"
	"github.com/emrgen/refgraph/internal/store"
	"github.com/emrgen/refgraph/internal/tester"
)

// fakeRecord implements the full capability contract. With noop set its
// updaters report that nothing changed.
type fakeRecord struct {
	id         uuid.UUID
	class      string
	references []refs.Reference
	canonical  string
	noop       bool

	inlineUpdates []string
	renames       [][2]string
}

func (r *fakeRecord) Identity() uuid.UUID {
	return r.id
}

func (r *fakeRecord) ClassName() string {
	if r.class == "" {
		return "record"
	}
	return r.class
}

func (r *fakeRecord) References() ([]refs.Reference, error) {
	return r.references, nil
}

func (r *fakeRecord) CanonicalURL() (string, error) {
	if r.canonical == "" {
		return "", errors.New("no canonical url")
	}
	return r.canonical, nil
}

func (r *fakeRecord) ApplyInlineUpdate(ctx context.Context, url string, id uuid.UUID, content map[string]any) (bool, error) {
	r.inlineUpdates = append(r.inlineUpdates, url)
	return !r.noop, nil
}

func (r *fakeRecord) ApplyReferenceRename(ctx context.Context, from, to string) (bool, error) {
	r.renames = append(r.renames, [2]string{from, to})
	return !r.noop, nil
}

// bareRecord has no optional capabilities.
type bareRecord struct {
	id         uuid.UUID
	references []refs.Reference
}

func (r *bareRecord) Identity() uuid.UUID {
	return r.id
}

func (r *bareRecord) ClassName() string {
	return "record"
}

func (r *bareRecord) References() ([]refs.Reference, error) {
	return r.references, nil
}

type fakeSource struct {
	records map[uuid.UUID]Record
}

func (s *fakeSource) GetRecord(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return rec, nil
}

type fakeIndexer struct {
	indexed [][]uuid.UUID
	flushes int
	fail    bool
}

func (f *fakeIndexer) BulkIndex(ctx context.Context, ids []uuid.UUID) error {
	if f.fail {
		return errors.New("backend down")
	}
	f.indexed = append(f.indexed, ids)
	return nil
}

func (f *fakeIndexer) Flush(ctx context.Context) error {
	if f.fail {
		return errors.New("backend down")
	}
	f.flushes++
	return nil
}

type fakeScheduler struct {
	scheduled []string
}

func (f *fakeScheduler) Schedule(ctx context.Context, reference string) error {
	f.scheduled = append(f.scheduled, reference)
	return nil
}

func newTestService(t *testing.T) (*ReferenceService, *fakeIndexer, *fakeSource) {
	t.Helper()
	tester.RemoveDBFile()
	tester.Setup()

	res := resolver.New(resolver.Config{Origin: "http://localhost"}, nil)
	indexer := &fakeIndexer{}
	source := &fakeSource{records: make(map[uuid.UUID]Record)}

	svc := NewReferenceService(store.NewGormStore(tester.TestDB()), res, indexer, signal.NewRegistry())
	svc.SetRecordSource(source)
	return svc, indexer, source
}

func TestReferenceService_Lifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r1 := "http://localhost/records/1"
	r2 := "http://localhost/records/2"

	docA := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1}}}
	docB := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1}, {URL: r2}}}

	assert.NoError(t, svc.RecordCreated(ctx, docA))
	assert.NoError(t, svc.RecordCreated(ctx, docB))

	ids, err := svc.GetDependents(ctx, r1, true)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{docA.id, docB.id}, ids)

	// deleting A leaves only B
	assert.NoError(t, svc.RecordDeleted(ctx, docA))
	ids, err = svc.GetDependents(ctx, r1, true)
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{docB.id}, ids)

	// updating B away from r1 drops the last edge
	docB.references = []refs.Reference{{URL: r2}}
	docB.canonical = "http://localhost/records/" + docB.id.String()
	assert.NoError(t, svc.RecordUpdated(ctx, docB))

	ids, err = svc.GetDependents(ctx, r1, true)
	assert.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = svc.GetDependents(ctx, r2, true)
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{docB.id}, ids)
}

func TestReferenceService_MissingIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := &fakeRecord{id: uuid.Nil}
	assert.ErrorIs(t, svc.RecordCreated(ctx, rec), ErrMissingIdentity)
	assert.ErrorIs(t, svc.RecordUpdated(ctx, rec), ErrMissingIdentity)
	assert.ErrorIs(t, svc.RecordDeleted(ctx, rec), ErrMissingIdentity)
}

func TestReferenceService_MissingCanonicalURL(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("record type without the capability", func(t *testing.T) {
		rec := &bareRecord{id: uuid.New()}
		assert.ErrorIs(t, svc.RecordUpdated(ctx, rec), ErrMissingCanonicalURL)
	})

	t.Run("capability present but failing", func(t *testing.T) {
		rec := &fakeRecord{id: uuid.New()}
		assert.ErrorIs(t, svc.RecordUpdated(ctx, rec), ErrMissingCanonicalURL)
	})
}

func TestReferenceService_StrictCreate(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.SetStrictCreate(true)
	ctx := context.Background()

	rec := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: "http://localhost/records/1"}}}
	assert.NoError(t, svc.RecordCreated(ctx, rec))
	assert.ErrorIs(t, svc.RecordCreated(ctx, rec), store.ErrDuplicateEdge)
}

func TestReferenceService_ReindexDependents(t *testing.T) {
	ctx := context.Background()
	r1 := "http://localhost/records/1"

	t.Run("bulk index and flush once", func(t *testing.T) {
		svc, indexer, _ := newTestService(t)

		rec := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1}}}
		assert.NoError(t, svc.RecordCreated(ctx, rec))

		assert.NoError(t, svc.ReindexDependents(ctx, r1, nil))
		if assert.Len(t, indexer.indexed, 1) {
			assert.Equal(t, []uuid.UUID{rec.id}, indexer.indexed[0])
		}
		assert.Equal(t, 1, indexer.flushes)
	})

	t.Run("handled listener suppresses reindex", func(t *testing.T) {
		svc, indexer, _ := newTestService(t)

		rec := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1}}}
		assert.NoError(t, svc.RecordCreated(ctx, rec))

		var seen []uuid.UUID
		svc.signals.Subscribe(func(ctx context.Context, update signal.ReferenceUpdate) (bool, error) {
			seen = update.Affected
			return true, nil
		})

		assert.NoError(t, svc.ReindexDependents(ctx, r1, nil))
		assert.Equal(t, []uuid.UUID{rec.id}, seen)
		assert.Empty(t, indexer.indexed)
		assert.Zero(t, indexer.flushes)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		svc, indexer, _ := newTestService(t)
		indexer.fail = true

		assert.ErrorIs(t, svc.ReindexDependents(ctx, r1, nil), ErrIndexingFailure)
	})

	t.Run("prefix match reaches children", func(t *testing.T) {
		svc, indexer, _ := newTestService(t)

		rec := &fakeRecord{id: uuid.New(), references: []refs.Reference{
			{URL: "http://localhost/records/1/files/a"},
		}}
		assert.NoError(t, svc.RecordCreated(ctx, rec))

		assert.NoError(t, svc.ReindexDependents(ctx, "http://localhost/records/1", nil))
		if assert.Len(t, indexer.indexed, 1) {
			assert.Equal(t, []uuid.UUID{rec.id}, indexer.indexed[0])
		}
	})
}

func TestReferenceService_DeferredScheduler(t *testing.T) {
	svc, indexer, _ := newTestService(t)
	scheduler := &fakeScheduler{}
	svc.SetScheduler(scheduler)
	ctx := context.Background()

	canonical := "http://localhost/records/42"
	rec := &fakeRecord{id: uuid.New(), canonical: canonical}
	assert.NoError(t, svc.RecordUpdated(ctx, rec))

	assert.Equal(t, []string{canonical}, scheduler.scheduled)
	assert.Empty(t, indexer.indexed)
}

func TestReferenceService_ReferenceContentChanged(t *testing.T) {
	ctx := context.Background()
	r1 := "http://localhost/records/1"

	t.Run("no target", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.ReferenceContentChanged(ctx, nil, "", nil)
		assert.ErrorIs(t, err, ErrAmbiguousTarget)
	})

	t.Run("inline capable dependents are updated", func(t *testing.T) {
		svc, indexer, source := newTestService(t)

		capable := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1, Inline: true}}}
		pointerOnly := &bareRecord{id: uuid.New(), references: []refs.Reference{{URL: r1}}}
		source.records[capable.id] = capable
		source.records[pointerOnly.id] = pointerOnly

		assert.NoError(t, svc.RecordCreated(ctx, capable))
		assert.NoError(t, svc.RecordCreated(ctx, pointerOnly))

		updated, err := svc.ReferenceContentChanged(ctx, nil, r1, nil)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{capable.id}, updated)
		assert.Equal(t, []string{r1}, capable.inlineUpdates)

		// reindex is left to the hook's own persist call
		assert.Empty(t, indexer.indexed)
	})

	t.Run("unchanged dependents are not reported", func(t *testing.T) {
		svc, _, source := newTestService(t)

		current := &fakeRecord{id: uuid.New(), noop: true, references: []refs.Reference{{URL: r1, Inline: true}}}
		source.records[current.id] = current

		assert.NoError(t, svc.RecordCreated(ctx, current))

		updated, err := svc.ReferenceContentChanged(ctx, nil, r1, nil)
		assert.NoError(t, err)
		assert.Empty(t, updated)
		assert.Equal(t, []string{r1}, current.inlineUpdates)
	})

	t.Run("lookup by target identity", func(t *testing.T) {
		svc, _, source := newTestService(t)

		target := uuid.New()
		capable := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: r1, Inline: true}}}
		source.records[capable.id] = capable

		svc.res = resolver.New(resolver.Config{
			Origin: "http://localhost",
			Routes: []resolver.Route{{Pattern: "/records/{id}", Class: "record"}},
		}, func(ctx context.Context, class, id string) (uuid.UUID, bool) {
			return target, true
		})

		assert.NoError(t, svc.RecordCreated(ctx, capable))

		updated, err := svc.ReferenceContentChanged(ctx, nil, "", &target)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{capable.id}, updated)
	})
}

func TestReferenceService_ReferenceRenamed(t *testing.T) {
	svc, _, source := newTestService(t)
	ctx := context.Background()

	from := "http://localhost/records/2"
	to := "http://localhost/records/99"

	capable := &fakeRecord{id: uuid.New(), references: []refs.Reference{{URL: from}}}
	source.records[capable.id] = capable
	assert.NoError(t, svc.RecordCreated(ctx, capable))

	updated, err := svc.ReferenceRenamed(ctx, nil, from, to)
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{capable.id}, updated)
	assert.Equal(t, [][2]string{{from, to}}, capable.renames)

	_, err = svc.ReferenceRenamed(ctx, nil, "", to)
	assert.ErrorIs(t, err, ErrAmbiguousTarget)
}
