package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"productchat/internal/model"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(customer *model.Customer) error {
	if err := r.db.Create(customer).Error; err != nil {
		return fmt.Errorf("create customer failed: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByUsername(username string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("username = ?", username).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query customer by username failed: %w", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) GetByEmail(email string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query customer by email failed: %w", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) GetByID(id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query customer by id failed: %w", err)
	}
	return &customer, nil
}
