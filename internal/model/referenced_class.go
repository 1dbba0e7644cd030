package model

import "gorm.io/gorm"

// ReferencedClass is a lookup table row identifying the concrete type of a
// referencing document. Rows are immutable once created.
type ReferencedClass struct {
	gorm.Model
	Name string `gorm:"uniqueIndex;not null"`
}

func (c *ReferencedClass) TableName() string {
	return "referenced_classes"
}
