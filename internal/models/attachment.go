package models

import (
	"time"

	"github.com/nikitakofman/chinea-dataservice/internal/types"
)

// EntityImage is image metadata bound to an owning entity by
// (entity_type, entity_id). The bytes live in object storage; deletion is a
// soft delete so the audit trail survives storage cleanup.
type EntityImage struct {
	ID           uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType   string        `gorm:"size:32;not null;index:idx_image_entity" json:"entity_type"`
	EntityID     uint64        `gorm:"not null;index:idx_image_entity" json:"entity_id"`
	URL          string        `gorm:"size:1024" json:"url"`
	StoragePath  string        `gorm:"size:1024" json:"storage_path"`
	OriginalName string        `gorm:"size:255" json:"original_name"`
	FileName     string        `gorm:"size:255" json:"file_name"`
	FileSize     types.BigInt  `gorm:"not null;default:0" json:"file_size"`
	MimeType     string        `gorm:"size:128" json:"mime_type"`
	IsPrimary    bool          `gorm:"not null;default:false" json:"is_primary"`
	Position     int           `gorm:"not null;default:0" json:"position"`
	AltText      string        `gorm:"size:255" json:"alt_text"`
	Title        string        `gorm:"size:255" json:"title"`
	Deleted      bool          `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TableName overrides the table name for EntityImage
func (EntityImage) TableName() string {
	return "entity_images"
}

// EntityDocument is document metadata bound to an owning entity, same storage
// and soft-delete discipline as EntityImage but with a title/description and
// an optional document-type category instead of primary/position.
type EntityDocument struct {
	ID             uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType     string       `gorm:"size:32;not null;index:idx_document_entity" json:"entity_type"`
	EntityID       uint64       `gorm:"not null;index:idx_document_entity" json:"entity_id"`
	URL            string       `gorm:"size:1024" json:"url"`
	StoragePath    string       `gorm:"size:1024" json:"storage_path"`
	OriginalName   string       `gorm:"size:255" json:"original_name"`
	FileName       string       `gorm:"size:255" json:"file_name"`
	FileSize       types.BigInt `gorm:"not null;default:0" json:"file_size"`
	MimeType       string       `gorm:"size:128" json:"mime_type"`
	Title          string       `gorm:"size:255" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	DocumentTypeID *uint64      `gorm:"index" json:"document_type_id"`
	Deleted        bool         `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	DocumentType *Category `gorm:"foreignKey:DocumentTypeID" json:"document_type,omitempty"`
}

// TableName overrides the table name for EntityDocument
func (EntityDocument) TableName() string {
	return "entity_documents"
}
