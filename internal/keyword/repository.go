package keyword

import (
	"context"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
)

// Store is the read side the classifier consumes. Both lists are restricted
// to active categories; their order carries no meaning.
type Store interface {
	ListActiveCategories(ctx context.Context) ([]model.Category, error)
	ListKeywordsForActiveCategories(ctx context.Context) ([]model.CategoryKeyword, error)
}

type Repository interface {
	Store

	ListByCategory(ctx context.Context, categoryID int64) ([]model.CategoryKeyword, error)
	// BulkInsert skips entries whose (category, keyword) pair already exists
	// and reports how many rows were actually added.
	BulkInsert(ctx context.Context, entries []model.CategoryKeyword) (int, error)
	Delete(ctx context.Context, categoryID int64, keyword string) (bool, error)
	SetPriority(ctx context.Context, categoryID int64, keyword string, highPriority bool) (bool, error)
}
