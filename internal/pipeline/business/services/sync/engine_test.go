package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/wc"
	"gadgetsync/pkg/logger"
	"gadgetsync/pkg/retry"
)

// fakeCatalog records submitted chunks and can fail chunks containing a
// given product id.
type fakeCatalog struct {
	chunks     [][]wc.ProductUpdate
	failWithID int
}

func (f *fakeCatalog) BatchUpdate(ctx context.Context, updates []wc.ProductUpdate) (*wc.BatchResult, error) {
	for _, u := range updates {
		if f.failWithID != 0 && u.ID == f.failWithID {
			return nil, fmt.Errorf("backend unavailable")
		}
	}
	f.chunks = append(f.chunks, updates)
	result := &wc.BatchResult{}
	for _, u := range updates {
		result.Update = append(result.Update, wc.BatchItem{ID: u.ID})
	}
	return result, nil
}

type recordedDrop struct {
	productID int
	newPrice  float64
	target    float64
}

type fakeNotifier struct {
	outcomes []bool // failed flag per SyncOutcome call
	drops    []recordedDrop
}

func (f *fakeNotifier) SyncOutcome(report models.SyncReport, failed bool) {
	f.outcomes = append(f.outcomes, failed)
}

func (f *fakeNotifier) PriceDrop(product models.ProductRecord, newPrice float64, sub storage.AlertSubscription) {
	f.drops = append(f.drops, recordedDrop{productID: product.ID, newPrice: newPrice, target: sub.TargetPrice})
}

type engineFixture struct {
	engine    *Engine
	mirror    *storage.Mirror
	audit     *storage.AuditLog
	catalog   *fakeCatalog
	jobStatus *storage.JobStatusStore
	staging   *storage.StagingStore
	alerts    *storage.AlertStore
	notifier  *fakeNotifier
}

func newFixture(t *testing.T, records []models.ProductRecord) *engineFixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewLogger(nil, "[test]")
	kv := storage.NewMemoryStore()

	f := &engineFixture{
		mirror:    storage.NewMirror(filepath.Join(dir, "mirror.json"), log),
		audit:     storage.NewAuditLog(filepath.Join(dir, "audit.log")),
		catalog:   &fakeCatalog{},
		jobStatus: storage.NewJobStatusStore(kv),
		staging:   storage.NewStagingStore(kv),
		alerts:    storage.NewAlertStore(kv),
		notifier:  &fakeNotifier{},
	}
	if err := f.mirror.Save(records); err != nil {
		t.Fatalf("seed mirror: %v", err)
	}
	f.engine = NewEngine(f.mirror, f.audit, f.catalog, f.jobStatus, f.staging, f.alerts, f.notifier, log, Options{
		ChunkRetry:    retry.Policy{MaxAttempts: 2, Delay: time.Millisecond},
		ChunkInterval: time.Nanosecond,
	})
	return f
}

func price(v float64) *float64 { return &v }

func TestSyncHappyPath(t *testing.T) {
	f := newFixture(t, []models.ProductRecord{
		{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10999)},
		{ID: 12, Name: "realme Note 60", RegularPrice: price(1499)},
	})
	rows := []models.ImportRow{
		{Name: "Xiaomi Pad 6", SalePrice: price(9999), RegularPrice: price(10999),
			Marketplace: models.MarketplaceShopee, ProductID: "226", ShopID: "358",
			AffiliateURL: "https://shopee.ph/x?uls_trackid=abc",
			Action:       models.ActionApprove, MatchedCatalogID: 11},
		{Name: "realme Note 60", RegularPrice: price(1299),
			Marketplace: models.MarketplaceLazada, ProductID: "457",
			Action: models.ActionLink, LinkedCatalogID: 12},
	}
	if err := f.staging.Stage("job-1", rows); err != nil {
		t.Fatalf("stage: %v", err)
	}

	report, err := f.engine.Run(context.Background(), "job-1", rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalFound != 2 || report.TotalSynced != 2 || report.ChunksTotal != 1 || report.ChunksFail != 0 {
		t.Fatalf("report = %+v", report)
	}

	// Merged values must be durably saved.
	saved, err := f.mirror.Load()
	if err != nil {
		t.Fatalf("load mirror: %v", err)
	}
	if *saved[0].SalePrice != 9999 || saved[0].ShopeeProductID != "226" || saved[0].ShopeeShopID != "358" {
		t.Fatalf("record 11 not merged: %+v", saved[0])
	}
	if saved[0].AffiliateURL != "https://shopee.ph/x?uls_trackid=abc" {
		t.Fatalf("affiliate url not merged: %q", saved[0].AffiliateURL)
	}
	if saved[1].LazadaProductID != "457" || *saved[1].RegularPrice != 1299 {
		t.Fatalf("record 12 not merged: %+v", saved[1])
	}

	job, err := f.jobStatus.Get("job-1")
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if job.Status != models.JobComplete {
		t.Fatalf("job status = %q, want complete", job.Status)
	}

	entries, err := f.audit.Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("audit entries = %v, %v", entries, err)
	}
	if entries[0].Status != "complete" || entries[0].TotalSynced != 2 {
		t.Fatalf("audit entry = %+v", entries[0])
	}

	if _, err := f.staging.GetStaged("job-1"); err != storage.ErrNotFound {
		t.Fatalf("staged rows not discarded: %v", err)
	}
	if len(f.notifier.outcomes) != 1 || f.notifier.outcomes[0] {
		t.Fatalf("outcomes = %v, want one success", f.notifier.outcomes)
	}
}

func TestSyncPartialChunkFailure(t *testing.T) {
	var records []models.ProductRecord
	var rows []models.ImportRow
	for id := 1; id <= 30; id++ {
		records = append(records, models.ProductRecord{
			ID: id, Name: fmt.Sprintf("Item %d", id), RegularPrice: price(1000),
		})
		rows = append(rows, models.ImportRow{
			Name: fmt.Sprintf("Item %d", id), RegularPrice: price(1100),
			Action: models.ActionApprove, MatchedCatalogID: id,
		})
	}
	f := newFixture(t, records)
	f.catalog.failWithID = 1 // first chunk fails every attempt

	report, err := f.engine.Run(context.Background(), "job-1", rows)
	if err == nil {
		t.Fatal("expected error for partial failure")
	}
	if report.ChunksTotal != 2 || report.ChunksFail != 1 {
		t.Fatalf("report = %+v, want 1 of 2 chunks failed", report)
	}
	if report.TotalSynced != 5 {
		t.Fatalf("synced = %d, want the 5 items of the surviving chunk", report.TotalSynced)
	}
	if len(report.FailedIDs) != 25 {
		t.Fatalf("failed ids = %d, want 25", len(report.FailedIDs))
	}

	// The second chunk must still have been submitted.
	if len(f.catalog.chunks) != 1 || len(f.catalog.chunks[0]) != 5 {
		t.Fatalf("surviving submissions = %+v", f.catalog.chunks)
	}

	// Partial work is durably committed even though the job failed.
	saved, err := f.mirror.Load()
	if err != nil {
		t.Fatalf("load mirror: %v", err)
	}
	if *saved[29].RegularPrice != 1100 {
		t.Fatalf("mirror not saved after failure: %+v", saved[29])
	}

	job, _ := f.jobStatus.Get("job-1")
	if job.Status != models.JobFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}

	entries, _ := f.audit.Entries()
	if len(entries) != 1 || entries[0].Status != "failed" {
		t.Fatalf("audit = %+v, want one failed entry", entries)
	}
	if len(f.notifier.outcomes) != 1 || !f.notifier.outcomes[0] {
		t.Fatalf("outcomes = %v, want one failure notification", f.notifier.outcomes)
	}
}

func TestSyncSkipsUnknownAndIgnoredRows(t *testing.T) {
	f := newFixture(t, []models.ProductRecord{
		{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10999)},
	})
	rows := []models.ImportRow{
		{Name: "Gone", Action: models.ActionApprove, MatchedCatalogID: 999},
		{Name: "Not wanted", Action: models.ActionIgnore},
		{Name: "Never matched", Status: models.StatusUnmatched},
	}

	report, err := f.engine.Run(context.Background(), "job-1", rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalFound != 0 || report.ChunksTotal != 0 {
		t.Fatalf("report = %+v, want nothing to sync", report)
	}

	job, _ := f.jobStatus.Get("job-1")
	if job.Status != models.JobComplete {
		t.Fatalf("job status = %q, want complete", job.Status)
	}
}

func TestSyncFiresPriceDropAlerts(t *testing.T) {
	f := newFixture(t, []models.ProductRecord{
		{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)},
	})
	f.alerts.Subscribe(storage.AlertSubscription{ProductID: 11, TargetPrice: 9500})
	f.alerts.Subscribe(storage.AlertSubscription{ProductID: 11, TargetPrice: 8000})

	rows := []models.ImportRow{
		{Name: "Xiaomi Pad 6", SalePrice: price(9000), RegularPrice: price(10000),
			Action: models.ActionApprove, MatchedCatalogID: 11},
	}
	if _, err := f.engine.Run(context.Background(), "job-1", rows); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Only the subscription whose target covers the new price fires.
	if len(f.notifier.drops) != 1 {
		t.Fatalf("drops = %+v, want exactly one", f.notifier.drops)
	}
	d := f.notifier.drops[0]
	if d.productID != 11 || d.newPrice != 9000 || d.target != 9500 {
		t.Fatalf("drop = %+v", d)
	}
}

func TestSyncSecondRunLeavesHistoryUnchanged(t *testing.T) {
	f := newFixture(t, []models.ProductRecord{
		{ID: 11, Name: "Xiaomi Pad 6", RegularPrice: price(10000)},
	})
	rows := []models.ImportRow{
		{Name: "Xiaomi Pad 6", SalePrice: price(9000), RegularPrice: price(10000),
			Action: models.ActionApprove, MatchedCatalogID: 11},
	}

	if _, err := f.engine.Run(context.Background(), "job-1", rows); err != nil {
		t.Fatalf("first run: %v", err)
	}
	saved, err := f.mirror.Load()
	if err != nil {
		t.Fatalf("load mirror: %v", err)
	}
	historyLen := len(saved[0].PriceHistory)
	if historyLen != 2 {
		t.Fatalf("history after first run = %+v, want backfill plus today", saved[0].PriceHistory)
	}

	// Re-running the same approved rows must not grow the history.
	if _, err := f.engine.Run(context.Background(), "job-2", rows); err != nil {
		t.Fatalf("second run: %v", err)
	}
	saved, err = f.mirror.Load()
	if err != nil {
		t.Fatalf("load mirror: %v", err)
	}
	if len(saved[0].PriceHistory) != historyLen {
		t.Fatalf("history grew on repeated sync: %+v", saved[0].PriceHistory)
	}
}

func TestSyncMissingMirrorFails(t *testing.T) {
	f := newFixture(t, nil)
	// Replace the mirror with a path that does not exist.
	f.engine.mirror = storage.NewMirror(filepath.Join(t.TempDir(), "absent.json"), logger.NewLogger(nil, "[test]"))

	if _, err := f.engine.Run(context.Background(), "job-1", nil); err == nil {
		t.Fatal("expected error for missing mirror")
	}
	job, _ := f.jobStatus.Get("job-1")
	if job.Status != models.JobFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
}
