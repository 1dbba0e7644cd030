package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/emrgen/refgraph/internal/model"
)

var (
	// ErrDuplicateEdge is returned by strict edge creation when the
	// (document, reference) pair already exists.
	ErrDuplicateEdge = errors.New("reference edge already exists for this document")
	// ErrConcurrencyConflict is returned when an edge or document write loses
	// an optimistic-concurrency race. The caller must re-read and retry.
	ErrConcurrencyConflict = errors.New("stale version, concurrent write won")
	// ErrDocumentNotFound is returned when a document id does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// EdgeSpec describes one desired edge for a referencing document.
// ReferenceID is nil when the URI did not resolve to a local document.
type EdgeSpec struct {
	Reference   string
	ReferenceID *uuid.UUID
	Inline      bool
}

type Store interface {
	EdgeStore
	DocumentStore
	// Transaction runs f against a transactional view of the store. Nested
	// calls reuse savepoints, so edge synchronization can join an outer
	// document commit.
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

// EdgeStore is the persistent reference graph. The lifecycle synchronizer is
// its only writer.
type EdgeStore interface {
	// GetEdges retrieves edges by reference URI. With exact=false the match
	// is by string prefix; the empty prefix deliberately matches every edge.
	GetEdges(ctx context.Context, reference string, exact bool) ([]*model.ReferenceEdge, error)
	// GetEdgesByTarget retrieves edges whose resolved target is id.
	GetEdgesByTarget(ctx context.Context, id uuid.UUID) ([]*model.ReferenceEdge, error)
	// GetEdgesOwnedBy retrieves all edges owned by one referencing document.
	GetEdgesOwnedBy(ctx context.Context, docID uuid.UUID) ([]*model.ReferenceEdge, error)
	// ListDependents returns the deduplicated identities of all documents
	// holding an edge to reference (prefix match unless exact).
	ListDependents(ctx context.Context, reference string, exact bool) ([]uuid.UUID, error)
	// ListDependentsByTarget is ListDependents keyed by the resolved local
	// identity instead of the URI.
	ListDependentsByTarget(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	// CreateEdges inserts edges for a document, creating its ledger row on
	// first use. With strict=true an existing pair fails with
	// ErrDuplicateEdge; otherwise it is left as is.
	CreateEdges(ctx context.Context, docID uuid.UUID, className string, specs []EdgeSpec, strict bool) error
	// ReplaceEdges diffs the stored edge set against specs and applies the
	// minimal delete+insert set atomically. Equal sets are a no-op; a
	// duplicate insert under concurrent retry counts as already applied.
	ReplaceEdges(ctx context.Context, docID uuid.UUID, className string, specs []EdgeSpec) error
	// UpdateEdge rewrites one edge guarded by its version column.
	UpdateEdge(ctx context.Context, edge *model.ReferenceEdge) error
	// DeleteAllEdges removes the document's ledger row and every owned edge.
	DeleteAllEdges(ctx context.Context, docID uuid.UUID) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListDocumentsFromIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Document, error)
	// UpdateDocument persists doc if its stored version is still older.
	UpdateDocument(ctx context.Context, doc *model.Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}
