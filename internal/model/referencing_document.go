package model

import "gorm.io/gorm"

// ReferencingDocument is the ledger row grouping all edges owned by one
// document. It is created lazily on the first edge insert for that document
// and removed when the document is deleted or its last edge goes away.
type ReferencingDocument struct {
	gorm.Model
	DocumentID string `gorm:"uuid;uniqueIndex;not null"`
	ClassID    uint
	Class      ReferencedClass `gorm:"foreignKey:ClassID"`
}

func (d *ReferencingDocument) TableName() string {
	return "referencing_documents"
}
