package repository

import (
	"fmt"

	"gorm.io/gorm"

	"productchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.ProductChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create product chunks batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByCustomerID(customerID uint) ([]model.ProductChunk, error) {
	var chunks []model.ProductChunk
	if err := r.db.Where("customer_id = ?", customerID).Order("id").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list product chunks by customer failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByCustomerID(customerID uint) (int64, error) {
	result := r.db.Where("customer_id = ?", customerID).Delete(&model.ProductChunk{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete product chunks by customer failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
