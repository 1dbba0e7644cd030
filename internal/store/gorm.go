package store

import (
	"context"
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/refgraph/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func (g *GormStore) GetEdges(ctx context.Context, reference string, exact bool) ([]*model.ReferenceEdge, error) {
	var edges []*model.ReferenceEdge
	q := g.db.WithContext(ctx)
	if exact {
		q = q.Where("reference = ?", reference)
	} else {
		q = q.Where(`reference LIKE ? ESCAPE '\'`, likePrefix(reference))
	}
	err := q.Order("created_at").Find(&edges).Error
	return edges, err
}

func (g *GormStore) GetEdgesByTarget(ctx context.Context, id uuid.UUID) ([]*model.ReferenceEdge, error) {
	var edges []*model.ReferenceEdge
	err := g.db.WithContext(ctx).Where("reference_id = ?", id.String()).Find(&edges).Error
	return edges, err
}

func (g *GormStore) GetEdgesOwnedBy(ctx context.Context, docID uuid.UUID) ([]*model.ReferenceEdge, error) {
	ledger, err := g.getLedger(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var edges []*model.ReferenceEdge
	err = g.db.WithContext(ctx).Where("referencing_document_id = ?", ledger.ID).Find(&edges).Error
	return edges, err
}

func (g *GormStore) ListDependents(ctx context.Context, reference string, exact bool) ([]uuid.UUID, error) {
	q := g.db.WithContext(ctx).Model(&model.ReferenceEdge{}).
		Joins("JOIN referencing_documents ON referencing_documents.id = reference_edges.referencing_document_id")
	if exact {
		q = q.Where("reference_edges.reference = ?", reference)
	} else {
		q = q.Where(`reference_edges.reference LIKE ? ESCAPE '\'`, likePrefix(reference))
	}

	var raw []string
	if err := q.Distinct().Pluck("referencing_documents.document_id", &raw).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *GormStore) ListDependentsByTarget(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var raw []string
	err := g.db.WithContext(ctx).Model(&model.ReferenceEdge{}).
		Joins("JOIN referencing_documents ON referencing_documents.id = reference_edges.referencing_document_id").
		Where("reference_edges.reference_id = ?", id.String()).
		Distinct().Pluck("referencing_documents.document_id", &raw).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		parsed, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}

func (g *GormStore) getLedger(ctx context.Context, docID uuid.UUID) (*model.ReferencingDocument, error) {
	var ledger model.ReferencingDocument
	err := g.db.WithContext(ctx).Where("document_id = ?", docID.String()).First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// ensureLedger finds or lazily creates the ledger row for docID, together
// with its class lookup row.
func (g *GormStore) ensureLedger(ctx context.Context, docID uuid.UUID, className string) (*model.ReferencingDocument, error) {
	ledger, err := g.getLedger(ctx, docID)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var class model.ReferencedClass
	err = g.db.WithContext(ctx).Where(model.ReferencedClass{Name: className}).
		FirstOrCreate(&class).Error
	if err != nil {
		return nil, err
	}

	created := &model.ReferencingDocument{DocumentID: docID.String(), ClassID: class.ID}
	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoNothing: true,
	}).Create(created).Error
	if err != nil {
		return nil, err
	}
	if created.ID == 0 {
		// lost a concurrent first-edge race, the row is there now
		return g.getLedger(ctx, docID)
	}
	return created, nil
}

func newEdge(ledgerID uint, spec EdgeSpec) *model.ReferenceEdge {
	edge := &model.ReferenceEdge{
		ReferencingDocumentID: ledgerID,
		Reference:             spec.Reference,
		Inline:                spec.Inline,
		Version:               1,
	}
	if spec.ReferenceID != nil {
		v := spec.ReferenceID.String()
		edge.ReferenceID = &v
	}
	return edge
}

// insertEdge is insert-or-ignore: a duplicate (owner, reference) pair counts
// as already applied. A plain failed insert would abort the surrounding
// transaction on postgres, so the conflict is resolved in the statement.
func (g *GormStore) insertEdge(ctx context.Context, ledgerID uint, spec EdgeSpec) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "referencing_document_id"}, {Name: "reference"}},
		DoNothing: true,
	}).Create(newEdge(ledgerID, spec)).Error
}

// insertEdgeStrict surfaces the duplicate instead of ignoring it. The unique
// (owner, reference) index is the arbiter, so two concurrent strict creates
// cannot both pass the way a pre-insert existence check could. Aborting the
// surrounding transaction on the violation is the wanted outcome here.
func (g *GormStore) insertEdgeStrict(ctx context.Context, ledgerID uint, spec EdgeSpec) error {
	err := g.db.WithContext(ctx).Create(newEdge(ledgerID, spec)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEdge
	}
	return err
}

func (g *GormStore) CreateEdges(ctx context.Context, docID uuid.UUID, className string, specs []EdgeSpec, strict bool) error {
	if len(specs) == 0 {
		return nil
	}

	return g.Transaction(ctx, func(tx Store) error {
		s := tx.(*GormStore)
		ledger, err := s.ensureLedger(ctx, docID, className)
		if err != nil {
			return err
		}

		for _, spec := range specs {
			insert := s.insertEdge
			if strict {
				insert = s.insertEdgeStrict
			}
			if err := insert(ctx, ledger.ID, spec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GormStore) ReplaceEdges(ctx context.Context, docID uuid.UUID, className string, specs []EdgeSpec) error {
	return g.Transaction(ctx, func(tx Store) error {
		s := tx.(*GormStore)

		ledger, err := s.getLedger(ctx, docID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if len(specs) == 0 {
				return nil
			}
			if ledger, err = s.ensureLedger(ctx, docID, className); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var existing []*model.ReferenceEdge
		err = s.db.WithContext(ctx).Where("referencing_document_id = ?", ledger.ID).Find(&existing).Error
		if err != nil {
			return err
		}

		current := mapset.NewThreadUnsafeSet[string]()
		byRef := make(map[string]*model.ReferenceEdge, len(existing))
		for _, edge := range existing {
			current.Add(edge.Reference)
			byRef[edge.Reference] = edge
		}

		wanted := mapset.NewThreadUnsafeSet[string]()
		specByRef := make(map[string]EdgeSpec, len(specs))
		for _, spec := range specs {
			wanted.Add(spec.Reference)
			specByRef[spec.Reference] = spec
		}

		for ref := range current.Difference(wanted).Iter() {
			err := s.db.WithContext(ctx).Delete(&model.ReferenceEdge{}, "id = ?", byRef[ref].ID).Error
			if err != nil {
				return err
			}
		}

		for ref := range wanted.Difference(current).Iter() {
			if err := s.insertEdge(ctx, ledger.ID, specByRef[ref]); err != nil {
				return err
			}
		}

		// surviving edges: refresh the cached resolution when it moved,
		// leave untouched rows alone so version and updated_at stay put
		for ref := range wanted.Intersect(current).Iter() {
			edge, spec := byRef[ref], specByRef[ref]

			var want *string
			if spec.ReferenceID != nil {
				v := spec.ReferenceID.String()
				want = &v
			}
			if edge.Inline == spec.Inline && strPtrEqual(edge.ReferenceID, want) {
				continue
			}

			edge.ReferenceID = want
			edge.Inline = spec.Inline
			if err := s.UpdateEdge(ctx, edge); err != nil {
				return err
			}
		}

		if wanted.Cardinality() == 0 {
			return s.db.WithContext(ctx).Unscoped().Delete(&model.ReferencingDocument{}, "id = ?", ledger.ID).Error
		}
		return nil
	})
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (g *GormStore) UpdateEdge(ctx context.Context, edge *model.ReferenceEdge) error {
	res := g.db.WithContext(ctx).Model(&model.ReferenceEdge{}).
		Where("id = ? AND version = ?", edge.ID, edge.Version).
		Updates(map[string]any{
			"reference":    edge.Reference,
			"reference_id": edge.ReferenceID,
			"inline":       edge.Inline,
			"version":      edge.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}

	edge.Version++
	return nil
}

func (g *GormStore) DeleteAllEdges(ctx context.Context, docID uuid.UUID) error {
	return g.Transaction(ctx, func(tx Store) error {
		s := tx.(*GormStore)
		ledger, err := s.getLedger(ctx, docID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = s.db.WithContext(ctx).Delete(&model.ReferenceEdge{}, "referencing_document_id = ?", ledger.ID).Error
		if err != nil {
			return err
		}
		return s.db.WithContext(ctx).Unscoped().Delete(&model.ReferencingDocument{}, "id = ?", ledger.ID).Error
	})
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Create(doc).Error
}

func (g *GormStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (g *GormStore) ListDocumentsFromIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Document, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	var docs []*model.Document
	err := g.db.WithContext(ctx).Where("id in (?)", raw).Find(&docs).Error
	return docs, err
}

func (g *GormStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	res := g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND version < ?", doc.ID, doc.Version).
		Updates(map[string]any{
			"class":   doc.Class,
			"version": doc.Version,
			"content": doc.Content,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (g *GormStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Document{}).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
