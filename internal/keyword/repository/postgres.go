package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListActiveCategories(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	query := `
        SELECT id, name, description, image_url, sort_order, is_active, created_at, updated_at
        FROM categories
        WHERE is_active = TRUE
        ORDER BY id ASC
    `
	if err := r.DB.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	return categories, nil
}

func (r *PGRepository) ListKeywordsForActiveCategories(ctx context.Context) ([]model.CategoryKeyword, error) {
	keywords := []model.CategoryKeyword{}
	query := `
        SELECT ck.id, ck.category_id, ck.keyword, ck.is_high_priority, ck.created_at
        FROM category_keywords ck
        JOIN categories c ON c.id = ck.category_id
        WHERE c.is_active = TRUE
        ORDER BY ck.category_id ASC, ck.id ASC
    `
	if err := r.DB.SelectContext(ctx, &keywords, query); err != nil {
		return nil, fmt.Errorf("list keywords for active categories: %w", err)
	}
	return keywords, nil
}

func (r *PGRepository) ListByCategory(ctx context.Context, categoryID int64) ([]model.CategoryKeyword, error) {
	keywords := []model.CategoryKeyword{}
	query := `
        SELECT id, category_id, keyword, is_high_priority, created_at
        FROM category_keywords
        WHERE category_id = $1
        ORDER BY is_high_priority DESC, keyword ASC
    `
	if err := r.DB.SelectContext(ctx, &keywords, query, categoryID); err != nil {
		return nil, err
	}
	return keywords, nil
}

func (r *PGRepository) BulkInsert(ctx context.Context, entries []model.CategoryKeyword) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
        INSERT INTO category_keywords (category_id, keyword, is_high_priority, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (category_id, lower(keyword)) DO NOTHING
    `)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, e.CategoryID, e.Keyword, e.IsHighPriority, e.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert keyword %q for category %d: %w", e.Keyword, e.CategoryID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PGRepository) Delete(ctx context.Context, categoryID int64, keyword string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM category_keywords WHERE category_id = $1 AND lower(keyword) = lower($2)",
		categoryID, keyword)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PGRepository) SetPriority(ctx context.Context, categoryID int64, keyword string, highPriority bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE category_keywords SET is_high_priority = $1 WHERE category_id = $2 AND lower(keyword) = lower($3)",
		highPriority, categoryID, keyword)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
