package index

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/refgraph/internal/model"
)

var _ Indexer = (*GormIndexer)(nil)

// GormIndexer stages index entries in the document_index table. BulkIndex
// bumps the generation of each affected document and marks it unflushed;
// Flush makes the staged generation visible.
type GormIndexer struct {
	db *gorm.DB
}

func NewGormIndexer(db *gorm.DB) *GormIndexer {
	return &GormIndexer{db: db}
}

func (g *GormIndexer) BulkIndex(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	entries := make([]*model.DocumentIndex, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, &model.DocumentIndex{
			DocumentID: id.String(),
			Flushed:    false,
		})
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"generation": gorm.Expr("document_index.generation + 1"),
			"flushed":    false,
		}),
	}).Create(&entries).Error
}

func (g *GormIndexer) Flush(ctx context.Context) error {
	res := g.db.WithContext(ctx).Model(&model.DocumentIndex{}).
		Where("flushed = ?", false).
		Update("flushed", true)
	if res.Error != nil {
		return res.Error
	}

	logrus.Debugf("flushed %d index entries", res.RowsAffected)
	return nil
}
