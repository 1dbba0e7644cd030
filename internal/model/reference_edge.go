package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferenceEdge is a directed link from a referencing document to a
// referenced URI. ReferenceID is a cache of the resolved local identity and
// may be null for external or unresolvable references. A document may hold
// at most one edge per URI.
type ReferenceEdge struct {
	ID                    string `gorm:"primaryKey;uuid;not null"`
	ReferencingDocumentID uint   `gorm:"uniqueIndex:idx_reference_edges_owner_reference;not null"`
	Reference             string `gorm:"size:512;index;uniqueIndex:idx_reference_edges_owner_reference;not null"`
	ReferenceID           *string `gorm:"uuid;index"`
	Inline                bool    `gorm:"not null;default:false"`
	Version               int     `gorm:"not null;default:1"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (e *ReferenceEdge) TableName() string {
	return "reference_edges"
}

func (e *ReferenceEdge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
