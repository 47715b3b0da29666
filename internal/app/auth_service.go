package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"productchat/internal/model"
	"productchat/internal/pkg/jwtutil"
	"productchat/internal/repository"
)

var (
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)

// AuthService registers and authenticates customer (tenant owner) accounts.
type AuthService struct {
	customerRepo  *repository.CustomerRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	ShopName string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token    string
	Customer *model.Customer
}

func NewAuthService(customerRepo *repository.CustomerRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		customerRepo:  customerRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existingByName, err := s.customerRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	customer := &model.Customer{
		Username:     username,
		Email:        email,
		ShopName:     strings.TrimSpace(input.ShopName),
		PasswordHash: string(hash),
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, customer.ID, customer.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Customer: customer}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	customer, err := s.customerRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, customer.ID, customer.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Customer: customer}, nil
}

func (s *AuthService) GetCustomerByID(id uint) (*model.Customer, error) {
	if id == 0 {
		return nil, ErrInvalidCustomer
	}
	return s.customerRepo.GetByID(id)
}
