package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/emrgen/refgraph/internal/refs"
)

// Record is the capability contract the engine consumes from the document
// storage collaborator. Identity returns uuid.Nil for a record that was
// never persisted.
type Record interface {
	Identity() uuid.UUID
	ClassName() string
	References() ([]refs.Reference, error)
}

// CanonicalURLer is the optional capability of records that expose a stable
// dereferenceable URI. Update propagation requires it.
type CanonicalURLer interface {
	CanonicalURL() (string, error)
}

// InlineUpdater is the optional capability of records that embed referenced
// content inline. ApplyInlineUpdate substitutes the new content behind url
// (or, when url is empty, behind the URI of id) and persists the record,
// which re-enters the normal update lifecycle. It reports whether the record
// actually changed; a record without an inlined copy of the target is left
// untouched.
type InlineUpdater interface {
	ApplyInlineUpdate(ctx context.Context, url string, id uuid.UUID, content map[string]any) (bool, error)
}

// RenameUpdater is the optional capability of records that can rewrite a
// bare pointer in place when the referenced URI moves. It reports whether
// the record actually changed.
type RenameUpdater interface {
	ApplyReferenceRename(ctx context.Context, from, to string) (bool, error)
}

// ContentCarrier exposes the decoded content of a changed object so inline
// copies of it can be refreshed.
type ContentCarrier interface {
	Content() (map[string]any, error)
}

// RecordSource loads records by identity so propagation can reach the
// dependents of a changed reference.
type RecordSource interface {
	GetRecord(ctx context.Context, id uuid.UUID) (Record, error)
}
