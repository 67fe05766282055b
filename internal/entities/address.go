package entities

import "time"

// Address is a cached postal-code lookup result. CEP is stored without the
// separator dash.
type Address struct {
	ID         uint   `gorm:"primaryKey"`
	CEP        string `gorm:"uniqueIndex;not null"`
	Street     string
	Complement string
	District   string
	City       string
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
