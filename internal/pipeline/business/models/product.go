package models

import (
	"fmt"
)

// PricePoint is one entry of a product's price history. Entries are only
// appended, oldest first, and never reordered.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// ProductRecord is one catalog item in the local mirror. ID is assigned by the
// external catalog and never changes.
type ProductRecord struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Slug            string       `json:"slug,omitempty"`
	Permalink       string       `json:"url,omitempty"`
	SalePrice       *float64     `json:"sale_price,omitempty"`
	RegularPrice    *float64     `json:"regular_price,omitempty"`
	ShopeeProductID string       `json:"shopee_product_id,omitempty"`
	ShopeeShopID    string       `json:"shopee_shop_id,omitempty"`
	LazadaProductID string       `json:"lazada_product_id,omitempty"`
	LazadaShopID    string       `json:"lazada_shop_id,omitempty"`
	AffiliateURL    string       `json:"affiliate_url,omitempty"`
	ButtonText      string       `json:"button_text,omitempty"`
	PriceHistory    []PricePoint `json:"price_history,omitempty"`
}

// Validate rejects mirror entries that cannot participate in matching or sync.
func (p *ProductRecord) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("product record has no catalog id (name=%q)", p.Name)
	}
	if p.Name == "" {
		return fmt.Errorf("product record %d has no name", p.ID)
	}
	return nil
}

// ExternalID returns the external id this record carries for a marketplace,
// or "" when none is known.
func (p *ProductRecord) ExternalID(marketplace Marketplace) string {
	switch marketplace {
	case MarketplaceShopee:
		return p.ShopeeProductID
	case MarketplaceLazada:
		return p.LazadaProductID
	default:
		return ""
	}
}

// CurrentPrice is the price the mirror currently considers effective: the sale
// price when the item is on sale, otherwise the regular price.
func (p *ProductRecord) CurrentPrice() *float64 {
	if p.SalePrice != nil {
		return p.SalePrice
	}
	return p.RegularPrice
}

// Marketplace identifies the source platform an import row or external id
// belongs to.
type Marketplace string

const (
	MarketplaceShopee Marketplace = "shopee"
	MarketplaceLazada Marketplace = "lazada"
)
