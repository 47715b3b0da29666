package model

import (
	"encoding/json"
	"time"
)

// Product is one catalog entry owned by a customer (tenant). Free-form
// attributes and image URLs are stored as JSON text for portability.
type Product struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CustomerID     uint      `gorm:"not null;index" json:"customer_id"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	TargetAudience string    `gorm:"size:256" json:"target_audience"`
	ToneOfVoice    string    `gorm:"size:128" json:"tone_of_voice"`
	Status         string    `gorm:"size:32" json:"status"`
	DirectURL      string    `gorm:"size:512" json:"direct_url"`
	Price          int64     `json:"price"`
	Category       string    `gorm:"size:128" json:"category"`
	Attributes     string    `gorm:"type:text" json:"-"` // JSON object of string values
	ImageURLs      string    `gorm:"type:text" json:"-"` // JSON array of strings
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AttributeMap returns the parsed free-form attributes; empty on parse error.
func (p *Product) AttributeMap() map[string]string {
	if p.Attributes == "" {
		return nil
	}
	var m map[string]string
	_ = json.Unmarshal([]byte(p.Attributes), &m)
	return m
}

// SetAttributes stores the free-form attributes as JSON.
func (p *Product) SetAttributes(attrs map[string]string) {
	if len(attrs) == 0 {
		p.Attributes = ""
		return
	}
	b, _ := json.Marshal(attrs)
	p.Attributes = string(b)
}

// ImageURLList returns the parsed image URLs; empty on parse error.
func (p *Product) ImageURLList() []string {
	if p.ImageURLs == "" {
		return nil
	}
	var urls []string
	_ = json.Unmarshal([]byte(p.ImageURLs), &urls)
	return urls
}

// SetImageURLs stores the image URLs as JSON.
func (p *Product) SetImageURLs(urls []string) {
	if len(urls) == 0 {
		p.ImageURLs = ""
		return
	}
	b, _ := json.Marshal(urls)
	p.ImageURLs = string(b)
}
