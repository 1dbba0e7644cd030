package model

import "gorm.io/gorm"

// Migrate applies the schema. Migrations are additive only.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ReferencedClass{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&ReferencingDocument{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&ReferenceEdge{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Document{}); err != nil {
		return err
	}

	return db.AutoMigrate(&DocumentIndex{})
}
