package model

import "time"

// Session is one chatbot conversation scoped to a customer's catalog.
type Session struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Title      string    `gorm:"size:128;not null" json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
