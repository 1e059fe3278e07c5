package models

import "time"

// Category is a user-scoped item classification. Categories nest one level
// through ParentCategoryID and double as document types for attachments.
type Category struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           string  `gorm:"type:char(36);not null;index:idx_category_name,unique" json:"user_id"`
	Name             string  `gorm:"size:255;not null;index:idx_category_name,unique" json:"name"`
	Description      string  `gorm:"type:text" json:"description"`
	ParentCategoryID *uint64 `gorm:"index" json:"parent_category_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	ParentCategory *Category  `gorm:"foreignKey:ParentCategoryID" json:"parent_category,omitempty"`
	Children       []Category `gorm:"foreignKey:ParentCategoryID" json:"children,omitempty"`
}

// TableName overrides the table name for Category
func (Category) TableName() string {
	return "categories"
}

// CostEventType is a user-scoped label for cost entries (repair, transport,
// appraisal and the like).
type CostEventType struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:char(36);not null;index:idx_cost_event_type_name,unique" json:"user_id"`
	Name      string `gorm:"size:255;not null;index:idx_cost_event_type_name,unique" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for CostEventType
func (CostEventType) TableName() string {
	return "cost_event_types"
}
