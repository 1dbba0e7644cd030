package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/refgraph/internal/queue"
	"github.com/emrgen/refgraph/internal/service"
)

// ReindexDrain pops pending references off the reindex queue and runs the
// propagation coordinator for each. A reference is acked only after it was
// reindexed or re-enqueued, so one dequeued by a dying drainer stays
// reclaimable. A failed reference goes back on the queue, so a flaky index
// backend retries the whole batch later.
type ReindexDrain struct {
	queue   queue.ReindexQueue
	service *service.ReferenceService
	batch   int
}

func NewReindexDrain(q queue.ReindexQueue, s *service.ReferenceService) *ReindexDrain {
	return &ReindexDrain{
		queue:   q,
		service: s,
		batch:   100,
	}
}

func (d *ReindexDrain) Run() {
	ctx := context.Background()

	for i := 0; i < d.batch; i++ {
		reference, ok, err := d.queue.Dequeue(ctx)
		if err != nil {
			logrus.Errorf("reindex queue dequeue failed: %v", err)
			return
		}
		if !ok {
			return
		}

		if err := d.service.ReindexDependents(ctx, reference, nil); err != nil {
			logrus.Errorf("reindex of dependents of %s failed: %v", reference, err)
			if err := d.queue.Enqueue(ctx, reference); err != nil {
				// leave the reference in flight for reclaim
				logrus.Errorf("re-enqueue of %s failed: %v", reference, err)
				return
			}
			if err := d.queue.Ack(ctx, reference); err != nil {
				logrus.Errorf("ack of %s failed: %v", reference, err)
			}
			return
		}

		if err := d.queue.Ack(ctx, reference); err != nil {
			logrus.Errorf("ack of %s failed: %v", reference, err)
			return
		}
	}
}

// QueueScheduler adapts a ReindexQueue to the service.Scheduler hook.
type QueueScheduler struct {
	queue queue.ReindexQueue
}

func NewQueueScheduler(q queue.ReindexQueue) *QueueScheduler {
	return &QueueScheduler{queue: q}
}

func (s *QueueScheduler) Schedule(ctx context.Context, reference string) error {
	return s.queue.Enqueue(ctx, reference)
}
