package models

import "time"

// Person types.
const (
	PersonTypeClient = "client"
	PersonTypeSeller = "seller"
	PersonTypeExpert = "expert"
)

// Person is a user-scoped contact: a client on sales, a seller on purchases,
// or an expert consulted for appraisals.
type Person struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:char(36);not null;index:idx_person_name,unique" json:"user_id"`
	Name      string `gorm:"size:255;not null;index:idx_person_name,unique" json:"name"`
	Type      string `gorm:"size:32" json:"type"`
	Email     string `gorm:"size:255" json:"email"`
	Phone     string `gorm:"size:64" json:"phone"`
	Notes     string `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for Person
func (Person) TableName() string {
	return "people"
}
