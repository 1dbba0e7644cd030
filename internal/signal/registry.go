// Package signal is an explicit in-process publish/subscribe registry for
// the reference-update extension point.
package signal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReferenceUpdate is emitted after the dependents of a changed reference
// have been collected and before any automatic reindexing happens.
type ReferenceUpdate struct {
	// Reference is the changed URI, possibly a prefix.
	Reference string
	// Changed is the object whose content or address changed, if the caller
	// had one. Listeners must not expect mutations on it to be persisted.
	Changed any
	// Affected are the identities of all documents holding an edge to the
	// reference, deduplicated.
	Affected []uuid.UUID
}

// Listener reacts to a ReferenceUpdate. Returning true claims the reindexing
// work, suppressing the automatic bulk reindex.
type Listener func(ctx context.Context, update ReferenceUpdate) (handled bool, err error)

// Registry fans a ReferenceUpdate out to its listeners in subscription
// order. All listeners always run; a handled result does not short-circuit.
type Registry struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Emit dispatches update and aggregates the results: handled is true when
// any listener claimed the update, err is the first listener error. A
// failing listener does not stop the remaining listeners.
func (r *Registry) Emit(ctx context.Context, update ReferenceUpdate) (bool, error) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	handled := false
	var firstErr error
	for _, l := range listeners {
		ok, err := l(ctx, update)
		if err != nil {
			logrus.Errorf("reference update listener failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			handled = true
		}
	}

	return handled, firstErr
}
