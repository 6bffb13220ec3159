package keyword

import (
	"context"
	"errors"

	"github.com/fekuna/affiliate-catalog-service/internal/keyword/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
)

var (
	ErrEmptyKeyword    = errors.New("keyword must not be empty")
	ErrKeywordNotFound = errors.New("keyword not found")
)

type UseCase interface {
	AddKeywords(ctx context.Context, input *dto.AddKeywordsInput) (int, error)
	RemoveKeyword(ctx context.Context, categoryID int64, keyword string) error
	ListKeywords(ctx context.Context, categoryID int64) ([]model.CategoryKeyword, error)
	SetHighPriority(ctx context.Context, categoryID int64, keyword string, highPriority bool) error
	Seed(ctx context.Context, seeds []dto.SeedCategory) (*dto.SeedReport, error)
}
