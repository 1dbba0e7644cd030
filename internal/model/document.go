package model

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Document is a minimal JSON document record. The engine only depends on the
// capability contract exposed by refgraph.Document; this model backs the CLI,
// the inline-update path and the tests.
type Document struct {
	gorm.Model
	ID      string `gorm:"primaryKey;uuid;not null"`
	Class   string `gorm:"not null;default:'record'"`
	Version int64
	Content string `gorm:"not null"` // JSON body, references embedded as {"$ref": uri} or inlined blocks
}

func (d *Document) TableName() string {
	return "documents"
}

// Data decodes the JSON body.
func (d *Document) Data() (map[string]any, error) {
	data := make(map[string]any)
	if d.Content == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(d.Content), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SetData encodes data back into the JSON body.
func (d *Document) SetData(data map[string]any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	d.Content = string(buf)
	return nil
}
