package product

import (
	"context"
	"errors"

	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("product requires an item id and a name")
	ErrNegativePrice   = errors.New("price must not be negative")
)

// Classifier is what the product usecase needs from the category classifier.
type Classifier interface {
	Classify(ctx context.Context, productName string) (*int64, error)
	LoadSnapshot(ctx context.Context) (*classifier.Snapshot, error)
}

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ImportProducts(ctx context.Context, items []dto.CreateProductInput) (*dto.ImportReport, error)
	ReclassifyUncategorized(ctx context.Context) (*dto.ReclassifyReport, error)
	CategoryCounts(ctx context.Context) (map[int64]int, error)

	// Wait blocks until background cache invalidation and index sync are done.
	Wait()
}
