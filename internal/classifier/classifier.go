// Package classifier picks the best-fitting active category for a product
// name from the keywords registered per category.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fekuna/affiliate-catalog-service/internal/keyword"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyProductName = errors.New("product name is required")

// Snapshot is the keyword universe one or more classifications run against.
// Categories are ordered by ascending id, which fixes the tie-break: among
// equal top scores the lowest id wins.
type Snapshot struct {
	Categories []model.Category
	Keywords   map[int64][]model.CategoryKeyword
}

// NewSnapshot groups keywords under their categories. Keywords whose category
// is not in categories are ignored.
func NewSnapshot(categories []model.Category, keywords []model.CategoryKeyword) *Snapshot {
	cats := make([]model.Category, len(categories))
	copy(cats, categories)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })

	known := make(map[int64]struct{}, len(cats))
	for _, c := range cats {
		known[c.ID] = struct{}{}
	}

	byCategory := make(map[int64][]model.CategoryKeyword, len(cats))
	for _, k := range keywords {
		if _, ok := known[k.CategoryID]; ok {
			byCategory[k.CategoryID] = append(byCategory[k.CategoryID], k)
		}
	}

	return &Snapshot{Categories: cats, Keywords: byCategory}
}

// Classify returns the id of the best-scoring category, or nil when no
// category scored above zero.
func (s *Snapshot) Classify(productName string) *int64 {
	best := Best(Score(s, productName))
	if best == nil {
		return nil
	}
	id := best.CategoryID
	return &id
}

type Classifier struct {
	store  keyword.Store
	logger logger.ZapLogger
}

func NewClassifier(store keyword.Store, log logger.ZapLogger) *Classifier {
	return &Classifier{
		store:  store,
		logger: log,
	}
}

// LoadSnapshot reads active categories and their keywords concurrently.
func (c *Classifier) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		categories []model.Category
		keywords   []model.CategoryKeyword
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = c.store.ListActiveCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = c.store.ListKeywordsForActiveCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load classifier snapshot: %w", err)
	}

	return NewSnapshot(categories, keywords), nil
}

// Classify rejects a blank name. Any storage failure is logged and reported
// as no match so callers can carry on with an uncategorized product.
func (c *Classifier) Classify(ctx context.Context, productName string) (*int64, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, ErrEmptyProductName
	}

	snap := c.snapshotOrEmpty(ctx)
	return snap.Classify(productName), nil
}

// ClassifyAll classifies a batch against a single snapshot. The result is
// index-aligned with names.
func (c *Classifier) ClassifyAll(ctx context.Context, names []string) ([]*int64, error) {
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("names[%d]: %w", i, ErrEmptyProductName)
		}
	}

	snap := c.snapshotOrEmpty(ctx)
	out := make([]*int64, len(names))
	for i, name := range names {
		out[i] = snap.Classify(name)
	}
	return out, nil
}

// Explain returns the categories that scored above zero, best first.
func (c *Classifier) Explain(ctx context.Context, productName string) ([]CategoryScore, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, ErrEmptyProductName
	}

	snap := c.snapshotOrEmpty(ctx)
	scores := Score(snap, productName)

	ranked := make([]CategoryScore, 0, len(scores))
	for _, s := range scores {
		if s.Score > 0 {
			ranked = append(ranked, s)
		}
	}
	// Stable keeps ascending id among equal scores, matching Best.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

func (c *Classifier) snapshotOrEmpty(ctx context.Context) *Snapshot {
	snap, err := c.LoadSnapshot(ctx)
	if err != nil {
		c.logger.Warn("classification skipped, keyword store unavailable", zap.Error(err))
		return NewSnapshot(nil, nil)
	}
	return snap
}
