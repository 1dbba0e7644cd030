package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/emrgen/refgraph/internal/queue"
	"github.com/emrgen/refgraph/internal/resolver"
	"github.com/emrgen/refgraph/internal/service"
	"github.com/emrgen/refgraph/internal/signal"
	"github.com/emrgen/refgraph/internal/store"
	"github.com/emrgen/refgraph/internal/tester"
)

type flakyIndexer struct {
	fail    bool
	indexed [][]uuid.UUID
}

func (f *flakyIndexer) BulkIndex(ctx context.Context, ids []uuid.UUID) error {
	if f.fail {
		return errors.New("backend down")
	}
	f.indexed = append(f.indexed, ids)
	return nil
}

func (f *flakyIndexer) Flush(ctx context.Context) error {
	if f.fail {
		return errors.New("backend down")
	}
	return nil
}

func TestReindexDrain_RequeuesOnFailure(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	ctx := context.Background()
	st := store.NewGormStore(tester.TestDB())
	indexer := &flakyIndexer{fail: true}

	res := resolver.New(resolver.Config{Origin: "http://localhost"}, nil)
	svc := service.NewReferenceService(st, res, indexer, signal.NewRegistry())

	r1 := "http://localhost/records/1"
	docID := uuid.New()
	err := st.CreateEdges(ctx, docID, "record", []store.EdgeSpec{{Reference: r1}}, false)
	assert.NoError(t, err)

	q := queue.NewMemory(8)
	assert.NoError(t, q.Enqueue(ctx, r1))

	drain := NewReindexDrain(q, svc)

	// backend down: the reference goes back on the queue, nothing indexed
	drain.Run()
	assert.Empty(t, indexer.indexed)

	assert.NoError(t, q.Reclaim(ctx))
	reference, ok, err := q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r1, reference)
	assert.NoError(t, q.Ack(ctx, reference))

	// backend back: the retried reference drains and is acked for good
	indexer.fail = false
	assert.NoError(t, q.Enqueue(ctx, r1))
	drain.Run()

	assert.Len(t, indexer.indexed, 1)
	assert.Equal(t, []uuid.UUID{docID}, indexer.indexed[0])

	assert.NoError(t, q.Reclaim(ctx))
	_, ok, err = q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}
