package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type storeItemRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.StoreItem, error)
	FindByID(ctx context.Context, id string) (*models.StoreItem, error)
	Create(ctx context.Context, item *models.StoreItem) error
	Update(ctx context.Context, item *models.StoreItem) error
	Delete(ctx context.Context, id string) error
}

// StoreItemRequest is the payload for creating or editing a catalog item.
type StoreItemRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Category    string          `json:"category" validate:"required,oneof=notes test-series bundle stationery"`
	IsActive    *bool           `json:"is_active"`
}

// StoreService manages the study material catalog.
type StoreService struct {
	repo      storeItemRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStoreService constructs a StoreService.
func NewStoreService(repo storeItemRepository, validate *validator.Validate, logger *zap.Logger) *StoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{repo: repo, validator: validate, logger: logger}
}

// Catalog lists items. Students only ever see active ones.
func (s *StoreService) Catalog(ctx context.Context, role models.UserRole) ([]models.StoreItem, error) {
	items, err := s.repo.List(ctx, role != models.RoleAdmin)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list store items")
	}
	if items == nil {
		items = []models.StoreItem{}
	}
	return items, nil
}

// Get returns one item.
func (s *StoreService) Get(ctx context.Context, id string) (*models.StoreItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeItemError(err, "failed to load store item")
	}
	return item, nil
}

// Create adds a catalog item. New items are active unless stated otherwise.
func (s *StoreService) Create(ctx context.Context, req StoreItemRequest) (*models.StoreItem, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	item := &models.StoreItem{IsActive: true}
	applyStoreRequest(item, req)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Internal(err, "failed to create store item")
	}
	s.logger.Info("store item created", zap.String("item_id", item.ID), zap.String("category", string(item.Category)))
	return item, nil
}

// Update edits a catalog item.
func (s *StoreService) Update(ctx context.Context, id string, req StoreItemRequest) (*models.StoreItem, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyStoreRequest(item, req)
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, storeItemError(err, "failed to update store item")
	}
	return item, nil
}

// Delete removes a catalog item.
func (s *StoreService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeItemError(err, "failed to delete store item")
	}
	return nil
}

func (s *StoreService) validate(req StoreItemRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid store item payload")
	}
	if req.Price.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}
	return nil
}

func applyStoreRequest(item *models.StoreItem, req StoreItemRequest) {
	item.Title = strings.TrimSpace(req.Title)
	item.Description = strings.TrimSpace(req.Description)
	item.Price = req.Price
	item.ImageURL = req.ImageURL
	item.Category = models.StoreCategory(req.Category)
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
}

func storeItemError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "store item not found")
	}
	return appErrors.Internal(err, message)
}
