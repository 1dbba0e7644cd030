// Package service implements the lifecycle synchronizer and the propagation
// coordinator that keep the reference graph consistent with document writes.
package service

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/refgraph/internal/index"
	"github.com/emrgen/refgraph/internal/refs"
	"github.com/emrgen/refgraph/internal/resolver"
	"github.com/emrgen/refgraph/internal/signal"
	"github.com/emrgen/refgraph/internal/store"
)

// Scheduler defers dependent reindexing to a queue instead of running it
// inline. Delivery is at-least-once; reindexing an identity twice is
// harmless.
type Scheduler interface {
	Schedule(ctx context.Context, reference string) error
}

// NewReferenceService creates the engine service around the edge store, the
// URI resolver, the search index and the extension-point registry.
func NewReferenceService(st store.Store, res *resolver.Resolver, indexer index.Indexer, signals *signal.Registry) *ReferenceService {
	return &ReferenceService{
		store:   st,
		res:     res,
		indexer: indexer,
		signals: signals,
	}
}

// ReferenceService is the sole writer of reference edges and the only
// mutator of the search index.
type ReferenceService struct {
	store   store.Store
	res     *resolver.Resolver
	indexer index.Indexer
	signals *signal.Registry

	records   RecordSource
	scheduler Scheduler
	strict    bool
}

// WithStore returns a copy of the service bound to st, so edge
// synchronization can join a document commit transaction.
func (s *ReferenceService) WithStore(st store.Store) *ReferenceService {
	bound := *s
	bound.store = st
	return &bound
}

// SetRecordSource wires the loader used to reach dependents during inline
// content propagation.
func (s *ReferenceService) SetRecordSource(src RecordSource) {
	s.records = src
}

// SetScheduler switches update propagation to the deferred queue model.
func (s *ReferenceService) SetScheduler(q Scheduler) {
	s.scheduler = q
}

// SetStrictCreate makes RecordCreated fail with ErrDuplicateEdge when an
// edge already exists, instead of leaving it in place.
func (s *ReferenceService) SetStrictCreate(strict bool) {
	s.strict = strict
}

func (s *ReferenceService) resolveSpecs(ctx context.Context, references []refs.Reference) []store.EdgeSpec {
	specs := make([]store.EdgeSpec, 0, len(references))
	for _, ref := range references {
		specs = append(specs, store.EdgeSpec{
			Reference:   ref.URL,
			ReferenceID: s.res.Resolve(ctx, ref.URL),
			Inline:      ref.Inline,
		})
	}
	return specs
}

// RecordCreated inserts edges for a freshly committed record.
func (s *ReferenceService) RecordCreated(ctx context.Context, rec Record) error {
	id := rec.Identity()
	if id == uuid.Nil {
		return ErrMissingIdentity
	}

	references, err := rec.References()
	if err != nil {
		return err
	}

	return s.store.CreateEdges(ctx, id, rec.ClassName(), s.resolveSpecs(ctx, references), s.strict)
}

// RecordUpdated diffs the record's reference set against the stored edges,
// applies the minimal change atomically, then propagates the record's
// canonical URL to its dependents.
func (s *ReferenceService) RecordUpdated(ctx context.Context, rec Record) error {
	if err := s.SyncUpdated(ctx, rec); err != nil {
		return err
	}
	return s.PropagateUpdate(ctx, rec)
}

// SyncUpdated is the edge half of RecordUpdated: the diff-and-replace of the
// record's edge set, without propagation. Callers wrapping the document
// commit in their own transaction run this inside it (via WithStore) and
// PropagateUpdate after it commits, so indexing never interleaves with the
// edge writes.
func (s *ReferenceService) SyncUpdated(ctx context.Context, rec Record) error {
	id := rec.Identity()
	if id == uuid.Nil {
		return ErrMissingIdentity
	}

	references, err := rec.References()
	if err != nil {
		return err
	}

	return s.store.ReplaceEdges(ctx, id, rec.ClassName(), s.resolveSpecs(ctx, references))
}

// PropagateUpdate hands the record's canonical URL to the reindex path:
// the deferred queue when one is wired, the coordinator inline otherwise.
func (s *ReferenceService) PropagateUpdate(ctx context.Context, rec Record) error {
	urler, ok := rec.(CanonicalURLer)
	if !ok {
		return ErrMissingCanonicalURL
	}
	canonical, err := urler.CanonicalURL()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingCanonicalURL, err)
	}

	if s.scheduler != nil {
		return s.scheduler.Schedule(ctx, canonical)
	}
	return s.ReindexDependents(ctx, canonical, rec)
}

// RecordDeleted removes the record's ledger row and every owned edge.
func (s *ReferenceService) RecordDeleted(ctx context.Context, rec Record) error {
	id := rec.Identity()
	if id == uuid.Nil {
		return ErrMissingIdentity
	}
	return s.store.DeleteAllEdges(ctx, id)
}

// GetDependents returns the identities of all documents holding an edge to
// reference. With exact=false the match is by prefix, so a deleted parent
// path can invalidate everything under it.
func (s *ReferenceService) GetDependents(ctx context.Context, reference string, exact bool) ([]uuid.UUID, error) {
	return s.store.ListDependents(ctx, reference, exact)
}

// ReindexDependents finds every document referencing anything under
// reference, notifies the extension point once, and, unless a listener
// claimed the work, bulk-indexes the affected identities and flushes the
// index exactly once.
func (s *ReferenceService) ReindexDependents(ctx context.Context, reference string, changed any) error {
	affected, err := s.store.ListDependents(ctx, reference, false)
	if err != nil {
		return err
	}

	handled, err := s.signals.Emit(ctx, signal.ReferenceUpdate{
		Reference: reference,
		Changed:   changed,
		Affected:  affected,
	})
	if err != nil {
		logrus.Warnf("listener error during reference update for %s: %v", reference, err)
	}
	if handled {
		return nil
	}

	if err := s.indexer.BulkIndex(ctx, affected); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexingFailure, err)
	}
	if err := s.indexer.Flush(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexingFailure, err)
	}
	return nil
}

// ReferenceContentChanged refreshes inlined copies of a changed reference.
// At least one of refURL and refID must identify the target. Each exact
// dependent with the inline capability gets the new content; only
// dependents that actually changed are returned. Reindexing is not
// triggered here, the hook's own persist call re-enters the update
// lifecycle.
func (s *ReferenceService) ReferenceContentChanged(ctx context.Context, changed any, refURL string, refID *uuid.UUID) ([]uuid.UUID, error) {
	if refURL == "" && refID == nil {
		return nil, ErrAmbiguousTarget
	}

	var (
		dependents []uuid.UUID
		err        error
	)
	if refURL != "" {
		dependents, err = s.store.ListDependents(ctx, refURL, true)
	} else {
		dependents, err = s.store.ListDependentsByTarget(ctx, *refID)
	}
	if err != nil {
		return nil, err
	}

	var content map[string]any
	if carrier, ok := changed.(ContentCarrier); ok {
		if content, err = carrier.Content(); err != nil {
			return nil, err
		}
	}

	target := uuid.Nil
	if refID != nil {
		target = *refID
	}

	return s.visitDependents(ctx, dependents, func(rec Record) (bool, error) {
		updater, ok := rec.(InlineUpdater)
		if !ok {
			return false, nil
		}
		return updater.ApplyInlineUpdate(ctx, refURL, target, content)
	})
}

// ReferenceRenamed rewrites the pointer fields of every exact dependent of
// from and returns the updated identities.
func (s *ReferenceService) ReferenceRenamed(ctx context.Context, changed any, from, to string) ([]uuid.UUID, error) {
	if from == "" {
		return nil, ErrAmbiguousTarget
	}

	dependents, err := s.store.ListDependents(ctx, from, true)
	if err != nil {
		return nil, err
	}

	return s.visitDependents(ctx, dependents, func(rec Record) (bool, error) {
		updater, ok := rec.(RenameUpdater)
		if !ok {
			return false, nil
		}
		return updater.ApplyReferenceRename(ctx, from, to)
	})
}

func (s *ReferenceService) visitDependents(ctx context.Context, dependents []uuid.UUID, visit func(rec Record) (bool, error)) ([]uuid.UUID, error) {
	if s.records == nil || len(dependents) == 0 {
		return nil, nil
	}

	updated := mapset.NewThreadUnsafeSet[uuid.UUID]()
	for _, id := range dependents {
		rec, err := s.records.GetRecord(ctx, id)
		if err != nil {
			return nil, err
		}

		ok, err := visit(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			updated.Add(id)
		}
	}

	return updated.ToSlice(), nil
}
