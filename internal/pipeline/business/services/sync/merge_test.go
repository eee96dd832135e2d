package sync

import (
	"testing"
	"time"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/wc"
)

func TestMergeRowBackfillsHistoryOnFirstChange(t *testing.T) {
	rec := &models.ProductRecord{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)}
	row := models.ImportRow{SalePrice: price(9000), RegularPrice: price(10000)}

	dropped := mergeRow(rec, row)
	if dropped == nil || *dropped != 9000 {
		t.Fatalf("dropped = %v, want 9000", dropped)
	}
	if len(rec.PriceHistory) != 2 {
		t.Fatalf("history = %+v, want backfill plus today", rec.PriceHistory)
	}

	today := time.Now().UTC()
	yesterday := today.AddDate(0, 0, -1)
	if rec.PriceHistory[0].Date != yesterday.Format(historyDateLayout) || rec.PriceHistory[0].Price != 10000 {
		t.Fatalf("backfill entry = %+v", rec.PriceHistory[0])
	}
	if rec.PriceHistory[1].Date != today.Format(historyDateLayout) || rec.PriceHistory[1].Price != 9000 {
		t.Fatalf("today entry = %+v", rec.PriceHistory[1])
	}
}

func TestMergeRowUnchangedPriceAppendsNothing(t *testing.T) {
	rec := &models.ProductRecord{
		ID: 11, Name: "Xiaomi Pad 6", SalePrice: price(9000), RegularPrice: price(10000),
		PriceHistory: []models.PricePoint{{Date: "2026-08-20", Price: 9000}},
	}
	row := models.ImportRow{SalePrice: price(9000), RegularPrice: price(10000)}

	if dropped := mergeRow(rec, row); dropped != nil {
		t.Fatalf("dropped = %v, want nil", *dropped)
	}
	if len(rec.PriceHistory) != 1 {
		t.Fatalf("history grew on unchanged price: %+v", rec.PriceHistory)
	}
}

func TestMergeRowPriceIncreaseIsNotADrop(t *testing.T) {
	rec := &models.ProductRecord{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)}
	row := models.ImportRow{RegularPrice: price(12000)}

	if dropped := mergeRow(rec, row); dropped != nil {
		t.Fatalf("dropped = %v, want nil for an increase", *dropped)
	}
	if len(rec.PriceHistory) != 2 {
		t.Fatalf("increase must still be recorded: %+v", rec.PriceHistory)
	}
}

func TestMergeRowNoBackfillWithExistingHistory(t *testing.T) {
	rec := &models.ProductRecord{
		ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000),
		PriceHistory: []models.PricePoint{{Date: "2026-08-20", Price: 10000}},
	}
	row := models.ImportRow{RegularPrice: price(9500)}

	mergeRow(rec, row)
	if len(rec.PriceHistory) != 2 {
		t.Fatalf("history = %+v, want one appended entry", rec.PriceHistory)
	}
	if rec.PriceHistory[1].Price != 9500 {
		t.Fatalf("appended entry = %+v", rec.PriceHistory[1])
	}
}

func TestMergeRowNoPriceLeavesRecordPrices(t *testing.T) {
	rec := &models.ProductRecord{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)}
	row := models.ImportRow{Marketplace: models.MarketplaceShopee, ProductID: "226", ShopID: "358"}

	mergeRow(rec, row)
	if len(rec.PriceHistory) != 0 {
		t.Fatalf("history = %+v, want untouched", rec.PriceHistory)
	}
	if rec.ShopeeProductID != "226" || rec.ButtonText != "Buy on Shopee" {
		t.Fatalf("identity not merged: %+v", rec)
	}
	if rec.RegularPrice == nil || *rec.RegularPrice != 10000 {
		t.Fatalf("stored price wiped: %+v", rec)
	}
}

func TestBuildUpdateClearsAbsentSalePrice(t *testing.T) {
	rec := &models.ProductRecord{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)}

	update := buildUpdate(rec)
	if update.SalePrice != "" {
		t.Fatalf("sale price = %q, want empty to clear the remote field", update.SalePrice)
	}
	if update.RegularPrice != "10000" {
		t.Fatalf("regular price = %q, want 10000", update.RegularPrice)
	}
}

func TestBuildUpdateSerializesHistory(t *testing.T) {
	rec := &models.ProductRecord{
		ID: 11, Name: "Xiaomi Pad 6", SalePrice: price(9000),
		LazadaProductID: "457",
		PriceHistory:    []models.PricePoint{{Date: "2026-08-27", Price: 9000}},
	}

	update := buildUpdate(rec)
	var history, lazadaID string
	for _, m := range update.MetaData {
		switch m.Key {
		case wc.MetaPriceHistory:
			history = m.Value
		case wc.MetaLazadaProductID:
			lazadaID = m.Value
		}
	}
	if history != `[{"date":"2026-08-27","price":9000}]` {
		t.Fatalf("price history metadata = %q", history)
	}
	if lazadaID != "457" {
		t.Fatalf("lazada id metadata = %q", lazadaID)
	}
}
