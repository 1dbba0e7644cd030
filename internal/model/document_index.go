package model

import "gorm.io/gorm"

// DocumentIndex is the search-index staging table. Bulk indexing upserts one
// row per affected document; Flush marks the generation as visible.
type DocumentIndex struct {
	gorm.Model
	DocumentID string `gorm:"uuid;uniqueIndex;not null"`
	Generation int64  `gorm:"not null;default:0"`
	Flushed    bool   `gorm:"not null;default:false"`
}

func (DocumentIndex) TableName() string {
	return "document_index"
}
