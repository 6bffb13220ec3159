package product

import (
	"context"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindByItemID(ctx context.Context, itemID string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error

	// Upsert inserts or refreshes a listing keyed by its Shopee item id. An
	// existing category is kept when product.CategoryID is nil.
	Upsert(ctx context.Context, product *model.Product) (created bool, err error)
	// FindUncategorized pages through listings without a category by ascending
	// id, starting after afterID.
	FindUncategorized(ctx context.Context, afterID int64, limit int) ([]model.Product, error)
	SetCategory(ctx context.Context, id int64, categoryID *int64) error
	CountByCategory(ctx context.Context) (map[int64]int, error)
}
