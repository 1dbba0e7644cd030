package refgraph

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/emrgen/refgraph/internal/cache"
	"github.com/emrgen/refgraph/internal/model"
	"github.com/emrgen/refgraph/internal/refs"
	"github.com/emrgen/refgraph/internal/service"
	"github.com/emrgen/refgraph/internal/store"
)

var (
	_ service.Record         = (*Document)(nil)
	_ service.CanonicalURLer = (*Document)(nil)
	_ service.InlineUpdater  = (*Document)(nil)
	_ service.RenameUpdater  = (*Document)(nil)
	_ service.ContentCarrier = (*Document)(nil)
)

// Document adapts a stored JSON document to the engine's record capability
// contract. References are embedded either as bare pointers
// {"$ref": uri} or as inlined blocks carrying their own links.self URI and
// slug, which count as inline references to their source.
type Document struct {
	engine *Engine
	model  *model.Document
}

func (d *Document) Identity() uuid.UUID {
	id, err := uuid.Parse(d.model.ID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (d *Document) ClassName() string {
	return d.model.Class
}

func (d *Document) Version() int64 {
	return d.model.Version
}

// Data returns the decoded document body.
func (d *Document) Data() (map[string]any, error) {
	return d.model.Data()
}

// References computes the document's outbound reference set. Inlined blocks
// are collapsed to bare pointers first, so an inlined copy yields an edge to
// its source with the inline flag set.
func (d *Document) References() ([]refs.Reference, error) {
	data, err := d.model.Data()
	if err != nil {
		return nil, err
	}

	inlined := make(map[string]bool)
	collapsed := refs.TransformNested(data, func(node map[string]any) map[string]any {
		out := refs.CollapseSelfLinks(node)
		if self, ok := refs.SelfURL(node); ok {
			if _, collapsed := out[refs.Marker]; collapsed {
				inlined[self] = true
			}
		}
		return out
	})

	var found []refs.Reference
	for _, url := range refs.ExtractStrings(collapsed) {
		found = append(found, refs.Reference{URL: url, Inline: inlined[url]})
	}
	return found, nil
}

// CanonicalURL returns the stable URI other documents reference this one
// under.
func (d *Document) CanonicalURL() (string, error) {
	id := d.Identity()
	if id == uuid.Nil {
		return "", service.ErrMissingIdentity
	}
	return d.engine.canonicalURL(id), nil
}

// Content returns the document body with links.self injected, so a copy
// inlined elsewhere stays recognizable as a copy of this document.
func (d *Document) Content() (map[string]any, error) {
	data, err := d.model.Data()
	if err != nil {
		return nil, err
	}

	canonical, err := d.CanonicalURL()
	if err != nil {
		return nil, err
	}

	links, _ := data["links"].(map[string]any)
	merged := make(map[string]any, len(links)+1)
	for k, v := range links {
		merged[k] = v
	}
	merged["self"] = canonical
	data["links"] = merged

	return data, nil
}

// ApplyInlineUpdate substitutes the new content behind url into this
// document's inlined copy and persists, re-entering the update lifecycle.
// When only the identity is given, the target URI is derived from it. A
// document holding no inlined copy of the target stays untouched.
func (d *Document) ApplyInlineUpdate(ctx context.Context, url string, id uuid.UUID, content map[string]any) (bool, error) {
	if url == "" {
		if id == uuid.Nil {
			return false, service.ErrAmbiguousTarget
		}
		url = d.engine.canonicalURL(id)
	}
	return d.reconcile(ctx, refs.ChangeContext{
		ContentChange: &refs.ContentChange{URL: url, Content: content},
	})
}

// ApplyReferenceRename rewrites this document's pointers from the old URI to
// the new one and persists.
func (d *Document) ApplyReferenceRename(ctx context.Context, from, to string) (bool, error) {
	return d.reconcile(ctx, refs.ChangeContext{
		Rename: &refs.Rename{From: from, To: to},
	})
}

func (d *Document) reconcile(ctx context.Context, chg refs.ChangeContext) (bool, error) {
	data, err := d.model.Data()
	if err != nil {
		return false, err
	}

	patched := refs.TransformNested(data, func(node map[string]any) map[string]any {
		// a content change refreshes existing inlined copies only; bare
		// pointers keep their pointer form
		if chg.ContentChange != nil {
			if _, ok := refs.SelfURL(node); !ok {
				return node
			}
		}
		return refs.ApplyPendingChange(chg, node)
	}).(map[string]any)

	// nothing matched, or the copy is already current
	if reflect.DeepEqual(data, patched) {
		return false, nil
	}

	if err := d.model.SetData(patched); err != nil {
		return false, err
	}
	d.model.Version++

	if err := d.engine.persistUpdate(ctx, d); err != nil {
		return false, err
	}
	return true, nil
}

// CreateDocument persists a new document and inserts its reference edges in
// one transaction. A zero id is assigned a fresh identity.
func (e *Engine) CreateDocument(ctx context.Context, id uuid.UUID, class string, data map[string]any) (*Document, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if class == "" {
		class = "record"
	}

	doc := &Document{engine: e, model: &model.Document{ID: id.String(), Class: class, Version: 1}}
	if err := doc.model.SetData(data); err != nil {
		return nil, err
	}

	err := e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateDocument(ctx, doc.model); err != nil {
			return err
		}
		return e.service.WithStore(tx).RecordCreated(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Engine) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	m, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Document{engine: e, model: m}, nil
}

// UpdateDocument replaces a document's body, synchronizes its edges
// atomically with the commit, then propagates the change to dependents.
func (e *Engine) UpdateDocument(ctx context.Context, id uuid.UUID, data map[string]any) (*Document, error) {
	doc, err := e.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := doc.model.SetData(data); err != nil {
		return nil, err
	}
	doc.model.Version++

	if err := e.persistUpdate(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Engine) persistUpdate(ctx context.Context, doc *Document) error {
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.UpdateDocument(ctx, doc.model); err != nil {
			return err
		}
		return e.service.WithStore(tx).SyncUpdated(ctx, doc)
	})
	if err != nil {
		return err
	}

	// propagation runs after the commit so indexing never sees a
	// half-updated document
	return e.service.PropagateUpdate(ctx, doc)
}

// DeleteDocument removes the document and every edge it owns.
func (e *Engine) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := e.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.DeleteDocument(ctx, id); err != nil {
			return err
		}
		return e.service.WithStore(tx).RecordDeleted(ctx, doc)
	})
	if err != nil {
		return err
	}

	// drop the memoized resolutions so new edges stop pointing here; the
	// cache is keyed by route class, which need not equal the stored class
	for _, route := range e.routes {
		if err := e.cache.Delete(ctx, cache.ResolveKey(route.Class+":"+id.String())); err != nil {
			return err
		}
	}
	return nil
}
