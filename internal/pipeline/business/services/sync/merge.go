package sync

import (
	"encoding/json"
	"time"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/wc"
)

const historyDateLayout = "2006-01-02"

// mergeRow folds one approved row into its mirror record: prices, external
// ids, affiliate link and button text. On a price drop it returns the new
// effective price so the caller can fire alerts after committing; otherwise
// nil.
func mergeRow(rec *models.ProductRecord, row models.ImportRow) *float64 {
	newPrice := row.SalePrice
	if newPrice == nil {
		newPrice = row.RegularPrice
	}
	stored := rec.CurrentPrice()

	// A row with no parsed prices still carries identity; it must not wipe
	// the prices already on record.
	var dropped *float64
	if newPrice != nil {
		if stored == nil || *stored != *newPrice {
			appendHistory(rec, stored, *newPrice)
			if stored != nil && *newPrice < *stored {
				dropped = newPrice
			}
		}
		rec.SalePrice = row.SalePrice
		rec.RegularPrice = row.RegularPrice
	}

	switch row.Marketplace {
	case models.MarketplaceShopee:
		rec.ShopeeProductID = row.ProductID
		rec.ShopeeShopID = row.ShopID
		rec.ButtonText = "Buy on Shopee"
	case models.MarketplaceLazada:
		rec.LazadaProductID = row.ProductID
		rec.LazadaShopID = row.ShopID
		rec.ButtonText = "Buy on Lazada"
	}
	if row.AffiliateURL != "" {
		rec.AffiliateURL = row.AffiliateURL
	}
	return dropped
}

// appendHistory records a price change. A record observed for the first time
// gets its previous price backfilled under yesterday's date so the chart
// never starts with a single point.
func appendHistory(rec *models.ProductRecord, stored *float64, newPrice float64) {
	today := time.Now().UTC()
	if len(rec.PriceHistory) == 0 && stored != nil {
		rec.PriceHistory = append(rec.PriceHistory, models.PricePoint{
			Date:  today.AddDate(0, 0, -1).Format(historyDateLayout),
			Price: *stored,
		})
	}
	rec.PriceHistory = append(rec.PriceHistory, models.PricePoint{
		Date:  today.Format(historyDateLayout),
		Price: newPrice,
	})
}

// buildUpdate turns a merged mirror record into the partial payload the batch
// endpoint expects. Prices are always present: an empty sale price clears a
// stale sale on the remote side.
func buildUpdate(rec *models.ProductRecord) wc.ProductUpdate {
	update := wc.ProductUpdate{
		ID:           rec.ID,
		SalePrice:    wc.FormatPrice(rec.SalePrice),
		RegularPrice: wc.FormatPrice(rec.RegularPrice),
		ExternalURL:  rec.AffiliateURL,
		ButtonText:   rec.ButtonText,
	}

	meta := []wc.MetaData{}
	addMeta := func(key, value string) {
		if value != "" {
			meta = append(meta, wc.MetaData{Key: key, Value: value})
		}
	}
	addMeta(wc.MetaShopeeProductID, rec.ShopeeProductID)
	addMeta(wc.MetaShopeeShopID, rec.ShopeeShopID)
	addMeta(wc.MetaLazadaProductID, rec.LazadaProductID)
	addMeta(wc.MetaLazadaShopID, rec.LazadaShopID)
	if len(rec.PriceHistory) > 0 {
		if raw, err := json.Marshal(rec.PriceHistory); err == nil {
			addMeta(wc.MetaPriceHistory, string(raw))
		}
	}
	update.MetaData = meta
	return update
}
