package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/cache"
	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/fekuna/affiliate-catalog-service/internal/product"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	indexName        = "products"
	listCachePrefix  = "products:list:"
	listCacheTTL     = 5 * time.Minute
	reclassifyPageSz = 500
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"item_id": { "type": "keyword" },
			"shop_id": { "type": "keyword" },
			"name": { "type": "text" },
			"description": { "type": "text" },
			"price": { "type": "double" },
			"category_id": { "type": "long" },
			"is_active": { "type": "boolean" },
			"created_at": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo       product.Repository
	classifier product.Classifier
	cache      *cache.RedisClient
	es         *search.Client
	logger     logger.ZapLogger

	// background runs cache invalidation and index sync off the request path.
	background func(func())
	pending    sync.WaitGroup
}

// NewProductUseCase accepts a nil cache or search client; the matching
// feature is then skipped.
func NewProductUseCase(repo product.Repository, cls product.Classifier, cache *cache.RedisClient, es *search.Client, log logger.ZapLogger) product.UseCase {
	uc := &productUseCase{
		repo:       repo,
		classifier: cls,
		cache:      cache,
		es:         es,
		logger:     log,
	}
	uc.background = func(f func()) {
		uc.pending.Add(1)
		go func() {
			defer uc.pending.Done()
			f()
		}()
	}
	return uc
}

// Wait blocks until every cache invalidation and index sync started so far
// has finished.
func (uc *productUseCase) Wait() {
	uc.pending.Wait()
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	p := newProduct(input, time.Now())
	if p.CategoryID == nil {
		p.CategoryID = uc.classify(ctx, p.Name)
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.afterWrite(p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cacheKey).Result()
		if err == nil {
			var result listResult
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	if filters.SearchQuery != "" && uc.es != nil {
		products, count, err := uc.searchIndex(ctx, filters)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(listResult{Products: products, Count: count}); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, listCacheTTL)
		}
	}

	return products, count, nil
}

type listResult struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) searchIndex(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	filter := []map[string]interface{}{}
	if f.CategoryID != nil {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"category_id": *f.CategoryID}})
	}
	if f.IsActive != nil {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"is_active": *f.IsActive}})
	}
	boolQuery := map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"multi_match": map[string]interface{}{
					"query":  f.SearchQuery,
					"fields": []string{"name^3", "description"},
				},
			},
		},
		"filter": filter,
	}
	if f.Uncategorized {
		boolQuery["must_not"] = []map[string]interface{}{
			{"exists": map[string]interface{}{"field": "category_id"}},
		}
	}

	q := map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * f.PageSize
		q["size"] = f.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err == nil {
			products = append(products, p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, product.ErrInvalidProduct
	}
	if input.Price.IsNegative() {
		return nil, product.ErrNegativePrice
	}

	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrProductNotFound
	}

	p.Name = strings.TrimSpace(input.Name)
	p.Description = optional(input.Description)
	p.Price = input.Price
	p.OriginalPrice = input.OriginalPrice
	p.ImageURL = optional(input.ImageURL)
	p.AffiliateURL = input.AffiliateURL
	p.IsActive = input.IsActive

	// No category given: classify the new name, keeping the current category
	// when nothing matches.
	if input.CategoryID != nil {
		p.CategoryID = input.CategoryID
	} else if id := uc.classify(ctx, p.Name); id != nil {
		p.CategoryID = id
	}

	p.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	uc.afterWrite(p)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	uc.background(func() {
		bg := context.Background()
		uc.invalidateListCache(bg)
		if uc.es != nil {
			if err := uc.es.Delete(bg, indexName, docID(id)); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}
	})
	return nil
}

// ImportProducts upserts a batch of listings keyed by item id. Every listing
// without an explicit category is classified against one snapshot. Invalid or
// failing items are counted and skipped.
func (uc *productUseCase) ImportProducts(ctx context.Context, items []dto.CreateProductInput) (*dto.ImportReport, error) {
	report := &dto.ImportReport{BatchID: uuid.NewString()}
	log := uc.logger.With(zap.String("batch_id", report.BatchID))

	snap, err := uc.classifier.LoadSnapshot(ctx)
	if err != nil {
		log.Warn("classification skipped for import batch, keyword store unavailable", zap.Error(err))
		snap = classifier.NewSnapshot(nil, nil)
	}

	now := time.Now()
	imported := make([]*model.Product, 0, len(items))
	for i := range items {
		input := &items[i]
		if err := validate(input); err != nil {
			report.Failed++
			log.Warn("skipping invalid import item", zap.String("item_id", input.ItemID), zap.Error(err))
			continue
		}

		p := newProduct(input, now)
		if p.CategoryID == nil {
			p.CategoryID = snap.Classify(p.Name)
		}

		created, err := uc.repo.Upsert(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			log.Error("failed to import product", zap.String("item_id", p.ItemID), zap.Error(err))
			continue
		}

		if created {
			report.Created++
		} else {
			report.Updated++
		}
		if p.CategoryID != nil {
			report.Categorized++
		} else {
			report.Uncategorized++
		}
		imported = append(imported, p)
	}

	if len(imported) > 0 {
		uc.background(func() {
			bg := context.Background()
			uc.invalidateListCache(bg)
			for _, p := range imported {
				uc.syncToElastic(bg, p)
			}
		})
	}

	log.Info("import batch finished",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("uncategorized", report.Uncategorized),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// ReclassifyUncategorized runs the classifier over every listing without a
// category, typically after new keywords were seeded.
func (uc *productUseCase) ReclassifyUncategorized(ctx context.Context) (*dto.ReclassifyReport, error) {
	snap, err := uc.classifier.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.ReclassifyReport{}
	var (
		afterID int64
		changed []*model.Product
	)
	for {
		page, err := uc.repo.FindUncategorized(ctx, afterID, reclassifyPageSz)
		if err != nil {
			return report, err
		}

		for i := range page {
			p := &page[i]
			report.Scanned++
			afterID = p.ID

			id := snap.Classify(p.Name)
			if id == nil {
				continue
			}
			if err := uc.repo.SetCategory(ctx, p.ID, id); err != nil {
				return report, err
			}
			p.CategoryID = id
			report.Categorized++
			changed = append(changed, p)
		}

		if len(page) < reclassifyPageSz {
			break
		}
	}

	if len(changed) > 0 {
		uc.background(func() {
			bg := context.Background()
			uc.invalidateListCache(bg)
			for _, p := range changed {
				uc.syncToElastic(bg, p)
			}
		})
	}
	return report, nil
}

func (uc *productUseCase) CategoryCounts(ctx context.Context) (map[int64]int, error) {
	return uc.repo.CountByCategory(ctx)
}

// classify never fails a write: errors and blank names yield no category.
func (uc *productUseCase) classify(ctx context.Context, name string) *int64 {
	id, err := uc.classifier.Classify(ctx, name)
	if err != nil {
		uc.logger.Warn("failed to classify product", zap.String("name", name), zap.Error(err))
		return nil
	}
	return id
}

func (uc *productUseCase) afterWrite(p *model.Product) {
	uc.background(func() {
		bg := context.Background()
		uc.invalidateListCache(bg)
		uc.syncToElastic(bg, p)
	})
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	_ = uc.es.CreateIndex(ctx, indexName, indexMapping)

	if err := uc.es.Index(ctx, indexName, docID(p.ID), p); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) invalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if _, err := uc.cache.DeletePattern(ctx, listCachePrefix+"*"); err != nil {
		uc.logger.Warn("failed to invalidate product list cache", zap.Error(err))
	}
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", listCachePrefix, md5.Sum(data)), nil
}

func validate(input *dto.CreateProductInput) error {
	if strings.TrimSpace(input.ItemID) == "" || strings.TrimSpace(input.Name) == "" {
		return product.ErrInvalidProduct
	}
	if input.Price.IsNegative() {
		return product.ErrNegativePrice
	}
	return nil
}

func newProduct(input *dto.CreateProductInput, now time.Time) *model.Product {
	return &model.Product{
		BaseModel:     model.BaseModel{CreatedAt: now, UpdatedAt: now},
		ItemID:        strings.TrimSpace(input.ItemID),
		ShopID:        input.ShopID,
		Name:          strings.TrimSpace(input.Name),
		Description:   optional(input.Description),
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		ImageURL:      optional(input.ImageURL),
		AffiliateURL:  input.AffiliateURL,
		CategoryID:    input.CategoryID,
		IsActive:      true,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func docID(id int64) string {
	return fmt.Sprintf("%d", id)
}
