package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/category"
	"github.com/fekuna/affiliate-catalog-service/internal/keyword"
	"github.com/fekuna/affiliate-catalog-service/internal/keyword/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"go.uber.org/zap"
)

type keywordUseCase struct {
	repo       keyword.Repository
	categories category.Repository
	snapshot   category.SnapshotInvalidator
	logger     logger.ZapLogger
}

func NewKeywordUseCase(repo keyword.Repository, categories category.Repository, snapshot category.SnapshotInvalidator, log logger.ZapLogger) keyword.UseCase {
	return &keywordUseCase{
		repo:       repo,
		categories: categories,
		snapshot:   snapshot,
		logger:     log,
	}
}

func (uc *keywordUseCase) AddKeywords(ctx context.Context, input *dto.AddKeywordsInput) (int, error) {
	if _, err := uc.requireCategory(ctx, input.CategoryID); err != nil {
		return 0, err
	}

	keywords := normalizeKeywords(input.Keywords)
	if len(keywords) == 0 {
		return 0, keyword.ErrEmptyKeyword
	}

	now := time.Now()
	entries := make([]model.CategoryKeyword, 0, len(keywords))
	for _, k := range keywords {
		entries = append(entries, model.CategoryKeyword{
			CategoryID:     input.CategoryID,
			Keyword:        k,
			IsHighPriority: input.HighPriority,
			CreatedAt:      now,
		})
	}

	n, err := uc.repo.BulkInsert(ctx, entries)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.invalidate(ctx)
	}
	return n, nil
}

func (uc *keywordUseCase) RemoveKeyword(ctx context.Context, categoryID int64, kw string) error {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return keyword.ErrEmptyKeyword
	}

	deleted, err := uc.repo.Delete(ctx, categoryID, kw)
	if err != nil {
		return err
	}
	if !deleted {
		return keyword.ErrKeywordNotFound
	}
	uc.invalidate(ctx)
	return nil
}

func (uc *keywordUseCase) ListKeywords(ctx context.Context, categoryID int64) ([]model.CategoryKeyword, error) {
	if _, err := uc.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return uc.repo.ListByCategory(ctx, categoryID)
}

func (uc *keywordUseCase) SetHighPriority(ctx context.Context, categoryID int64, kw string, highPriority bool) error {
	updated, err := uc.repo.SetPriority(ctx, categoryID, strings.TrimSpace(kw), highPriority)
	if err != nil {
		return err
	}
	if !updated {
		return keyword.ErrKeywordNotFound
	}
	uc.invalidate(ctx)
	return nil
}

// Seed registers keyword sets per category name, creating categories that do
// not exist yet. Running the same seed twice changes nothing.
func (uc *keywordUseCase) Seed(ctx context.Context, seeds []dto.SeedCategory) (*dto.SeedReport, error) {
	report := &dto.SeedReport{}
	now := time.Now()

	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return report, category.ErrInvalidName
		}

		cat, err := uc.categories.FindByName(ctx, name)
		if err != nil {
			return report, fmt.Errorf("lookup category %q: %w", name, err)
		}
		if cat == nil {
			cat = &model.Category{
				BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
				Name:      name,
				IsActive:  true,
			}
			if err := uc.categories.Create(ctx, cat); err != nil {
				return report, fmt.Errorf("create category %q: %w", name, err)
			}
			report.CategoriesCreated++
		}

		high := normalizeKeywords(seed.HighPriority)
		isHigh := make(map[string]bool, len(high))
		for _, k := range high {
			isHigh[strings.ToLower(k)] = true
		}
		all := normalizeKeywords(append(append([]string{}, high...), seed.Keywords...))

		entries := make([]model.CategoryKeyword, 0, len(all))
		for _, k := range all {
			entries = append(entries, model.CategoryKeyword{
				CategoryID:     cat.ID,
				Keyword:        k,
				IsHighPriority: isHigh[strings.ToLower(k)],
				CreatedAt:      now,
			})
		}

		n, err := uc.repo.BulkInsert(ctx, entries)
		if err != nil {
			return report, fmt.Errorf("seed keywords for %q: %w", name, err)
		}
		report.CategoriesSeeded++
		report.KeywordsInserted += n
		report.KeywordsSkipped += len(entries) - n

		uc.logger.Debug("seeded category",
			zap.String("category", name),
			zap.Int64("category_id", cat.ID),
			zap.Int("inserted", n),
		)
	}

	if report.CategoriesCreated > 0 || report.KeywordsInserted > 0 {
		uc.invalidate(ctx)
	}
	return report, nil
}

func (uc *keywordUseCase) requireCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, category.ErrCategoryNotFound
	}
	return cat, nil
}

func (uc *keywordUseCase) invalidate(ctx context.Context) {
	if uc.snapshot == nil {
		return
	}
	if err := uc.snapshot.Invalidate(ctx); err != nil {
		uc.logger.Warn("failed to invalidate classifier snapshot", zap.Error(err))
	}
}

// normalizeKeywords trims, drops empties and case-insensitive duplicates,
// keeping first occurrence order.
func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		lk := strings.ToLower(k)
		if _, ok := seen[lk]; ok {
			continue
		}
		seen[lk] = struct{}{}
		out = append(out, k)
	}
	return out
}
