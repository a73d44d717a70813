package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/library-fee-api/internal/models"
)

const storeItemColumns = `id, title, description, price, image_url, category, is_active, created_at, updated_at`

// StoreItemRepository manages the study material catalog.
type StoreItemRepository struct {
	db *sqlx.DB
}

// NewStoreItemRepository constructs a StoreItemRepository.
func NewStoreItemRepository(db *sqlx.DB) *StoreItemRepository {
	return &StoreItemRepository{db: db}
}

// List returns catalog items, newest first. activeOnly hides unpublished items.
func (r *StoreItemRepository) List(ctx context.Context, activeOnly bool) ([]models.StoreItem, error) {
	query := fmt.Sprintf("SELECT %s FROM store_items", storeItemColumns)
	if activeOnly {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY created_at DESC"
	var items []models.StoreItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list store items: %w", err)
	}
	return items, nil
}

// FindByID fetches one catalog item.
func (r *StoreItemRepository) FindByID(ctx context.Context, id string) (*models.StoreItem, error) {
	query := fmt.Sprintf("SELECT %s FROM store_items WHERE id = $1", storeItemColumns)
	var item models.StoreItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a catalog item.
func (r *StoreItemRepository) Create(ctx context.Context, item *models.StoreItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO store_items (id, title, description, price, image_url, category, is_active, created_at, updated_at)
        VALUES (:id, :title, :description, :price, :image_url, :category, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create store item: %w", err)
	}
	return nil
}

// Update modifies a catalog item.
func (r *StoreItemRepository) Update(ctx context.Context, item *models.StoreItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE store_items SET title = :title, description = :description, price = :price, image_url = :image_url, category = :category, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update store item: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a catalog item.
func (r *StoreItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM store_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete store item: %w", err)
	}
	return expectAffected(res)
}
