package queue

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	reindexQueueKey         = "refgraph:reindex:queue"
	reindexProcessingPrefix = "refgraph:reindex:processing:"
)

var _ ReindexQueue = (*RedisQueue)(nil)

// RedisQueue is a redis list shared by all workers. Dequeue moves the
// reference into a per-worker processing list in one step, so a worker
// dying mid-reindex leaves the reference there instead of losing it; the
// worker reclaims its own processing list when it comes back up.
type RedisQueue struct {
	client     *redis.Client
	processing string
	wait       time.Duration
}

// NewRedisQueue creates the queue for one worker identity. Two live workers
// must not share an identity, or a restart of one reclaims in-flight work
// of the other.
func NewRedisQueue(client *redis.Client, worker string) *RedisQueue {
	if worker == "" {
		worker = "default"
	}
	return &RedisQueue{
		client:     client,
		processing: reindexProcessingPrefix + worker,
		wait:       time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, reference string) error {
	return q.client.LPush(ctx, reindexQueueKey, reference).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (string, bool, error) {
	res := q.client.BLMove(ctx, reindexQueueKey, q.processing, "RIGHT", "LEFT", q.wait)
	if err := res.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return res.Val(), true, nil
}

func (q *RedisQueue) Ack(ctx context.Context, reference string) error {
	return q.client.LRem(ctx, q.processing, 1, reference).Err()
}

func (q *RedisQueue) Reclaim(ctx context.Context) error {
	for {
		err := q.client.LMove(ctx, q.processing, reindexQueueKey, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
