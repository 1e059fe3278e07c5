package models

import "time"

// Item is an inventory entry. It has no owner column of its own: ownership is
// always resolved through the parent book's user_id.
type Item struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID      uint64  `gorm:"not null;index:idx_item_number,unique" json:"book_id"`
	CategoryID  *uint64 `gorm:"index" json:"category_id"`
	ItemNumber  string  `gorm:"size:64;not null;index:idx_item_number,unique" json:"item_number"`
	Name        string  `gorm:"size:255" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Color       string  `gorm:"size:64" json:"color"`
	Grade       string  `gorm:"size:64" json:"grade"`
	// Attributes holds free-form per-item fields the UI renders dynamically
	// (dimensions, provenance, markings).
	Attributes JSON `gorm:"type:json" json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	Book      *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Category  *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Incidents []Incident `gorm:"foreignKey:ItemID" json:"incidents,omitempty"`
	Purchases []Purchase `gorm:"foreignKey:ItemID" json:"purchases,omitempty"`
	Sales     []Sale     `gorm:"foreignKey:ItemID" json:"sales,omitempty"`
}

// TableName overrides the table name for Item
func (Item) TableName() string {
	return "items"
}

// Incident records damage, loss or disputes attached to an item.
type Incident struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID       uint64    `gorm:"not null;index" json:"item_id"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	IncidentDate time.Time `json:"incident_date"`
	Resolved     bool      `gorm:"not null;default:false" json:"resolved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName overrides the table name for Incident
func (Incident) TableName() string {
	return "incidents"
}
