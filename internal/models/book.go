package models

import "time"

// Book is a per-user workspace. Every item belongs to exactly one book and
// item-level ownership is always resolved through the book's user_id.
type Book struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string `gorm:"type:char(36);not null;index:idx_book_reference,unique" json:"user_id"`
	Reference   string `gorm:"size:255;not null;index:idx_book_reference,unique" json:"reference"`
	Name        string `gorm:"size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Items       []Item `gorm:"foreignKey:BookID" json:"items,omitempty"`
}

// TableName overrides the table name for Book
func (Book) TableName() string {
	return "books"
}
