// Package index abstracts the search-index collaborator: bulk indexing of
// document identities plus an explicit flush.
package index

import (
	"context"

	"github.com/google/uuid"
)

// Indexer is the only path through which the search index is mutated.
// Indexing the same identity twice is harmless, so a whole batch can be
// retried after a failure.
type Indexer interface {
	BulkIndex(ctx context.Context, ids []uuid.UUID) error
	Flush(ctx context.Context) error
}

// Nop discards all indexing work. Used where no search backend is wired.
type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) BulkIndex(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

func (Nop) Flush(ctx context.Context) error {
	return nil
}
