package dto

import "github.com/shopspring/decimal"

// CreateProductInput is also the item shape of ProductImported events. A nil
// CategoryID asks for classification.
type CreateProductInput struct {
	ItemID        string           `json:"item_id"`
	ShopID        string           `json:"shop_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	ImageURL      string           `json:"image_url"`
	AffiliateURL  string           `json:"affiliate_url"`
	CategoryID    *int64           `json:"category_id"`
}

type UpdateProductInput struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	ImageURL      string
	AffiliateURL  string
	CategoryID    *int64
	IsActive      bool
}
