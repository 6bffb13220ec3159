package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/category"
	"github.com/fekuna/affiliate-catalog-service/internal/category/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo     category.Repository
	snapshot category.SnapshotInvalidator
	logger   logger.ZapLogger
}

// NewCategoryUseCase builds the category usecase. snapshot may be nil when no
// classifier cache is in front of the keyword store.
func NewCategoryUseCase(repo category.Repository, snapshot category.SnapshotInvalidator, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:     repo,
		snapshot: snapshot,
		logger:   log,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, category.ErrInvalidName
	}

	existing, err := uc.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, category.ErrDuplicateName
	}

	now := time.Now()
	cat := &model.Category{
		BaseModel: model.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        name,
		Description: optional(input.Description),
		ImageURL:    optional(input.ImageURL),
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, category.ErrCategoryNotFound
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.GetCategory(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, category.ErrInvalidName
	}
	if !strings.EqualFold(name, cat.Name) {
		other, err := uc.repo.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != cat.ID {
			return nil, category.ErrDuplicateName
		}
	}

	// Name and activity both feed the classifier.
	affectsClassifier := name != cat.Name || input.IsActive != cat.IsActive

	cat.Name = name
	cat.Description = optional(input.Description)
	cat.ImageURL = optional(input.ImageURL)
	cat.SortOrder = input.SortOrder
	cat.IsActive = input.IsActive
	cat.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	if affectsClassifier {
		uc.invalidate(ctx)
	}
	return cat, nil
}

func (uc *categoryUseCase) SetActive(ctx context.Context, id int64, active bool) (*model.Category, error) {
	cat, err := uc.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat.IsActive == active {
		return cat, nil
	}

	cat.IsActive = active
	cat.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	uc.logger.Info("category activity changed", zap.Int64("category_id", id), zap.Bool("active", active))
	uc.invalidate(ctx)
	return cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := uc.GetCategory(ctx, id); err != nil {
		return err
	}

	n, err := uc.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return category.ErrCategoryInUse
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.invalidate(ctx)
	return nil
}

func (uc *categoryUseCase) invalidate(ctx context.Context) {
	if uc.snapshot == nil {
		return
	}
	if err := uc.snapshot.Invalidate(ctx); err != nil {
		uc.logger.Warn("failed to invalidate classifier snapshot", zap.Error(err))
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
