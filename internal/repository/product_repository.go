package repository

import (
	"fmt"

	"gorm.io/gorm"

	"productchat/internal/model"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) CreateBatch(products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	if err := r.db.Create(&products).Error; err != nil {
		return fmt.Errorf("create products batch failed: %w", err)
	}
	return nil
}

func (r *ProductRepository) ListByCustomerID(customerID uint) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.Where("customer_id = ?", customerID).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products by customer failed: %w", err)
	}
	return products, nil
}

// ListByIDs returns the customer's products matching the given IDs. The
// customer filter keeps one tenant from ever reading another tenant's rows.
func (r *ProductRepository) ListByIDs(customerID uint, ids []uint) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []model.Product
	if err := r.db.Where("customer_id = ? AND id IN ?", customerID, ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products by ids failed: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) DeleteByCustomerID(customerID uint) (int64, error) {
	result := r.db.Where("customer_id = ?", customerID).Delete(&model.Product{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete products by customer failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
