package model

import (
	"encoding/json"
	"time"
)

// ProductChunk is the unit of retrieval: a self-contained passage of product
// text plus its embedding. Key product fields are denormalized onto the chunk
// so scoring never needs a join. Embedding is stored as a JSON array of
// float32 for portability.
type ProductChunk struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CustomerID uint   `gorm:"not null;index" json:"customer_id"`
	ProductID  uint   `gorm:"not null;index" json:"product_id"`
	ChunkIndex int    `gorm:"not null" json:"chunk_index"`
	ChunkText  string `gorm:"type:text;not null" json:"chunk_text"`
	Embedding  string `gorm:"type:text" json:"-"`

	// Denormalized product metadata.
	ProductName    string `gorm:"size:256" json:"product_name"`
	Category       string `gorm:"size:128" json:"category"`
	TargetAudience string `gorm:"size:256" json:"target_audience"`
	ToneOfVoice    string `gorm:"size:128" json:"tone_of_voice"`
	Status         string `gorm:"size:32" json:"status"`
	DirectURL      string `gorm:"size:512" json:"direct_url"`

	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *ProductChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *ProductChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
