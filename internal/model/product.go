package model

import "github.com/shopspring/decimal"

// Product is a Shopee listing promoted through an affiliate link.
type Product struct {
	BaseModel
	ItemID        string           `db:"item_id" json:"item_id"`
	ShopID        string           `db:"shop_id" json:"shop_id"`
	Name          string           `db:"name" json:"name"`
	Description   *string          `db:"description" json:"description"`
	Price         decimal.Decimal  `db:"price" json:"price"`
	OriginalPrice *decimal.Decimal `db:"original_price" json:"original_price"`
	ImageURL      *string          `db:"image_url" json:"image_url"`
	AffiliateURL  string           `db:"affiliate_url" json:"affiliate_url"`
	CategoryID    *int64           `db:"category_id" json:"category_id"` // Nullable: uncategorized
	IsActive      bool             `db:"is_active" json:"is_active"`
	Category      *Category        `db:"-" json:"category,omitempty"`
}
