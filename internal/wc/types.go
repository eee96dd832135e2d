package wc

import (
	"encoding/json"

	"gadgetsync/internal/pipeline/business/models"
)

// MetaData is a WooCommerce key-value metadata field. Marketplace ids and
// the serialized price history travel through these.
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Product is the subset of the WooCommerce product payload the pipeline
// reads. Prices arrive as strings.
type Product struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Permalink    string     `json:"permalink"`
	SalePrice    string     `json:"sale_price"`
	RegularPrice string     `json:"regular_price"`
	ExternalURL  string     `json:"external_url"`
	ButtonText   string     `json:"button_text"`
	MetaData     []MetaData `json:"meta_data"`
}

// ProductUpdate is one partial update inside a batch request: the catalog id
// plus only the fields being changed.
type ProductUpdate struct {
	ID           int        `json:"id"`
	Name         string     `json:"name,omitempty"`
	SalePrice    string     `json:"sale_price"`
	RegularPrice string     `json:"regular_price"`
	ExternalURL  string     `json:"external_url,omitempty"`
	ButtonText   string     `json:"button_text,omitempty"`
	MetaData     []MetaData `json:"meta_data,omitempty"`
}

type batchRequest struct {
	Update []ProductUpdate `json:"update"`
}

// BatchItem is one per-item outcome in a batch response. WooCommerce reports
// item-level failures inline rather than failing the request.
type BatchItem struct {
	ID    int `json:"id"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type BatchResult struct {
	Update []BatchItem `json:"update"`
}

// FailedIDs lists the catalog ids whose item-level update was rejected.
func (r *BatchResult) FailedIDs() []int {
	var ids []int
	for _, item := range r.Update {
		if item.Error != nil {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Metadata keys attached to catalog products.
const (
	MetaShopeeProductID = "shopee_product_id"
	MetaShopeeShopID    = "shopee_shop_id"
	MetaLazadaProductID = "lazada_product_id"
	MetaLazadaShopID    = "lazada_shop_id"
	MetaPriceHistory    = "price_history"
)

func (p *Product) meta(key string) string {
	for _, m := range p.MetaData {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}

// ToRecord converts a fetched product into a mirror record, deserializing
// the price-history metadata when present.
func (p *Product) ToRecord() models.ProductRecord {
	rec := models.ProductRecord{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Permalink:       p.Permalink,
		SalePrice:       ParsePrice(p.SalePrice),
		RegularPrice:    ParsePrice(p.RegularPrice),
		ShopeeProductID: p.meta(MetaShopeeProductID),
		ShopeeShopID:    p.meta(MetaShopeeShopID),
		LazadaProductID: p.meta(MetaLazadaProductID),
		LazadaShopID:    p.meta(MetaLazadaShopID),
		AffiliateURL:    p.ExternalURL,
		ButtonText:      p.ButtonText,
	}
	if raw := p.meta(MetaPriceHistory); raw != "" {
		var history []models.PricePoint
		if err := json.Unmarshal([]byte(raw), &history); err == nil {
			rec.PriceHistory = history
		}
	}
	return rec
}
