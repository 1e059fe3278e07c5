package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records the acquisition of an item, optionally from a known seller.
type Purchase struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID        uint64          `gorm:"not null;index" json:"item_id"`
	SellerID      *uint64         `gorm:"index" json:"seller_id"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"purchase_price"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Item   *Item   `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Seller *Person `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

// TableName overrides the table name for Purchase
func (Purchase) TableName() string {
	return "purchases"
}

// Sale records the disposal of an item, optionally to a known client.
// At most one sale may exist per item; the write path enforces it.
type Sale struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID        uint64          `gorm:"not null;index" json:"item_id"`
	ClientID      *uint64         `gorm:"index" json:"client_id"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2)" json:"sale_price"`
	SaleDate      time.Time       `json:"sale_date"`
	PaymentMethod string          `gorm:"size:64" json:"payment_method"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Item   *Item   `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Client *Person `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// TableName overrides the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// Cost is a user-scoped expense entry classified by a cost event type.
type Cost struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string          `gorm:"type:char(36);not null;index" json:"user_id"`
	EventTypeID *uint64         `gorm:"index" json:"event_type_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	CostDate    time.Time       `json:"cost_date"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	EventType *CostEventType `gorm:"foreignKey:EventTypeID" json:"event_type,omitempty"`
}

// TableName overrides the table name for Cost
func (Cost) TableName() string {
	return "costs"
}
