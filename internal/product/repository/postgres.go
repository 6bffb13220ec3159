package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, item_id, shop_id, name, description, price, original_price, image_url, affiliate_url, category_id, is_active, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            item_id, shop_id, name, description, price, original_price,
            image_url, affiliate_url, category_id, is_active, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `
	return r.DB.QueryRowxContext(ctx, query,
		p.ItemID, p.ShopID, p.Name, p.Description, p.Price, p.OriginalPrice,
		p.ImageURL, p.AffiliateURL, p.CategoryID, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) FindByItemID(ctx context.Context, itemID string) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE item_id = $1 LIMIT 1`, itemID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Product, error) {
	var product model.Product
	err := r.DB.GetContext(ctx, &product, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	products := []model.Product{}
	var count int

	conditions := []string{}
	args := []interface{}{}

	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Uncategorized {
		conditions = append(conditions, "category_id IS NULL")
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.SearchQuery != "" {
		args = append(args, "%"+f.SearchQuery+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.DB.GetContext(ctx, &count, "SELECT count(*) FROM products"+whereClause, args...); err != nil {
		return nil, 0, err
	}

	// Whitelisted to keep user input out of ORDER BY.
	orderBy := "created_at DESC"
	if f.SortBy != "" {
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "price"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s, id", productColumns, whereClause, orderBy)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	if err := r.DB.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}

	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            description = :description,
            price = :price,
            original_price = :original_price,
            image_url = :image_url,
            affiliate_url = :affiliate_url,
            category_id = :category_id,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return err
}

func (r *PGRepository) Upsert(ctx context.Context, p *model.Product) (bool, error) {
	query := `
        INSERT INTO products (
            item_id, shop_id, name, description, price, original_price,
            image_url, affiliate_url, category_id, is_active, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (item_id) DO UPDATE
        SET shop_id = EXCLUDED.shop_id,
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            price = EXCLUDED.price,
            original_price = EXCLUDED.original_price,
            image_url = EXCLUDED.image_url,
            affiliate_url = EXCLUDED.affiliate_url,
            category_id = COALESCE(EXCLUDED.category_id, products.category_id),
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
        RETURNING id, category_id, created_at, (xmax = 0) AS inserted
    `
	var inserted bool
	err := r.DB.QueryRowxContext(ctx, query,
		p.ItemID, p.ShopID, p.Name, p.Description, p.Price, p.OriginalPrice,
		p.ImageURL, p.AffiliateURL, p.CategoryID, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &p.CategoryID, &p.CreatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert product %s: %w", p.ItemID, err)
	}
	return inserted, nil
}

func (r *PGRepository) FindUncategorized(ctx context.Context, afterID int64, limit int) ([]model.Product, error) {
	products := []model.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE category_id IS NULL AND id > $1 ORDER BY id LIMIT $2`
	if err := r.DB.SelectContext(ctx, &products, query, afterID, limit); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) SetCategory(ctx context.Context, id int64, categoryID *int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE products SET category_id = $1, updated_at = NOW() WHERE id = $2", categoryID, id)
	return err
}

func (r *PGRepository) CountByCategory(ctx context.Context) (map[int64]int, error) {
	rows, err := r.DB.QueryxContext(ctx,
		"SELECT category_id, count(*) FROM products WHERE category_id IS NOT NULL GROUP BY category_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int64]int{}
	for rows.Next() {
		var (
			categoryID int64
			n          int
		)
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, err
		}
		counts[categoryID] = n
	}
	return counts, rows.Err()
}
