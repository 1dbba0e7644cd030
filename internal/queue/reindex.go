// Package queue holds the deferred reindex queue. Update propagation pushes
// the changed canonical URL; a background drainer pops references, runs the
// reindex and acknowledges. A dequeued reference stays in flight until it is
// acked, so a drainer dying mid-reindex leaves it reclaimable and delivery
// stays at-least-once.
package queue

import (
	"context"
	"sync"
)

type ReindexQueue interface {
	// Enqueue appends a changed reference for later reindexing.
	Enqueue(ctx context.Context, reference string) error
	// Dequeue pops the oldest pending reference and holds it in flight
	// until Ack. ok is false when nothing was pending.
	Dequeue(ctx context.Context) (reference string, ok bool, err error)
	// Ack drops an in-flight reference once its reindex finished or it was
	// re-enqueued.
	Ack(ctx context.Context, reference string) error
	// Reclaim moves in-flight references left behind by a dead drainer back
	// onto the queue. Run once at worker startup, before draining.
	Reclaim(ctx context.Context) error
}

// Memory is a process-local queue for tests and single-process setups.
type Memory struct {
	pending chan string

	mu       sync.Mutex
	inflight map[string]int
}

func NewMemory(capacity int) *Memory {
	return &Memory{
		pending:  make(chan string, capacity),
		inflight: make(map[string]int),
	}
}

func (m *Memory) Enqueue(ctx context.Context, reference string) error {
	select {
	case m.pending <- reference:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Dequeue(ctx context.Context) (string, bool, error) {
	select {
	case reference := <-m.pending:
		m.mu.Lock()
		m.inflight[reference]++
		m.mu.Unlock()
		return reference, true, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
		return "", false, nil
	}
}

func (m *Memory) Ack(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inflight[reference] > 1 {
		m.inflight[reference]--
	} else {
		delete(m.inflight, reference)
	}
	return nil
}

func (m *Memory) Reclaim(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for reference, n := range m.inflight {
		for i := 0; i < n; i++ {
			select {
			case m.pending <- reference:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		delete(m.inflight, reference)
	}
	return nil
}
