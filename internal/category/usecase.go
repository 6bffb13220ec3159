package category

import (
	"context"
	"errors"

	"github.com/fekuna/affiliate-catalog-service/internal/category/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidName      = errors.New("category name is required")
	ErrDuplicateName    = errors.New("category name already exists")
	ErrCategoryInUse    = errors.New("category is referenced by products")
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// SnapshotInvalidator drops any cached view of the active categories and
// their keywords. Category writes that change the classifier's input call it.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}
