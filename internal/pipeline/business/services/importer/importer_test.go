package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/business/services/parse"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/sheets"
	"gadgetsync/pkg/logger"
)

type fakeSource struct {
	rows []sheets.Row
	err  error
}

func (f *fakeSource) Rows(ctx context.Context) ([]sheets.Row, error) {
	return f.rows, f.err
}

var testAffiliate = parse.AffiliateParams{
	ShopeeCampaignID: "id_HURtY6Geqq",
	ShopeeSourceID:   "an_13327880016",
	LazadaPID:        "501234",
	UTMFallback:      "gadgetph",
}

type fixture struct {
	importer  *Importer
	mirror    *storage.Mirror
	staging   *storage.StagingStore
	jobStatus *storage.JobStatusStore
}

func newFixture(t *testing.T, records []models.ProductRecord) *fixture {
	t.Helper()
	log := logger.NewLogger(nil, "[test]")
	kv := storage.NewMemoryStore()

	f := &fixture{
		mirror:    storage.NewMirror(filepath.Join(t.TempDir(), "mirror.json"), log),
		staging:   storage.NewStagingStore(kv),
		jobStatus: storage.NewJobStatusStore(kv),
	}
	if err := f.mirror.Save(records); err != nil {
		t.Fatalf("seed mirror: %v", err)
	}
	f.importer = New(f.mirror, f.staging, f.jobStatus, testAffiliate, log)
	return f
}

func TestImportStagesParsedRows(t *testing.T) {
	f := newFixture(t, []models.ProductRecord{
		{ID: 11, Name: "Xiaomi Pad 6", Slug: "xiaomi-pad-6", ShopeeProductID: "22612345678"},
	})
	source := &fakeSource{rows: []sheets.Row{
		{{Text: "Mi Pad 6 Tablet ₱9,999 ₱11,999 -17% 2.1K sold",
			Hyperlink: "https://shopee.ph/Mi-Pad-6-i.358574496.22612345678?sp_atk=x"}},
		{{Text: "Mystery Gadget ₱1,500"}},
		{{Text: ""}}, // empty row dropped
	}}

	if err := f.importer.Run(context.Background(), "job-1", source); err != nil {
		t.Fatalf("run: %v", err)
	}

	staged, err := f.staging.GetStaged("job-1")
	if err != nil {
		t.Fatalf("get staged: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("staged %d rows, want 2", len(staged))
	}

	first := staged[0]
	if first.Status != models.StatusMatched || first.MatchedCatalogID != 11 {
		t.Fatalf("row = %+v, want id match on 11", first)
	}
	// Canonical catalog name and slug replace the seller's wording.
	if first.Name != "Xiaomi Pad 6" || first.Slug != "xiaomi-pad-6" {
		t.Fatalf("canonical fields not adopted: %+v", first)
	}
	if first.SalePrice == nil || *first.SalePrice != 9999 || *first.RegularPrice != 11999 {
		t.Fatalf("prices = %v/%v", first.SalePrice, first.RegularPrice)
	}
	if first.ProductID != "22612345678" || first.ShopID != "358574496" {
		t.Fatalf("identity = %+v", first)
	}
	if !strings.HasPrefix(first.AffiliateURL, "https://shopee.ph/Mi-Pad-6-i.358574496.22612345678?uls_trackid=") {
		t.Fatalf("affiliate url = %q", first.AffiliateURL)
	}

	second := staged[1]
	if second.Status != models.StatusUnmatched {
		t.Fatalf("row = %+v, want UNMATCHED", second)
	}
	if second.Name != "Mystery Gadget" || second.RegularPrice == nil || *second.RegularPrice != 1500 {
		t.Fatalf("row = %+v", second)
	}

	job, err := f.jobStatus.Get("job-1")
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if job.Status != models.JobComplete {
		t.Fatalf("status = %q, want complete", job.Status)
	}
	if !strings.Contains(job.Message, "2 rows (1 matched, 1 unmatched)") {
		t.Fatalf("message = %q", job.Message)
	}
}

func TestImportLazadaRowsUseLazadaRules(t *testing.T) {
	f := newFixture(t, nil)
	source := &fakeSource{rows: []sheets.Row{
		{{Text: "realme Note 60 丨IP54 rated 1,299",
			Hyperlink: "https://www.lazada.com.ph/products/realme-note-60-i4578901234.html?shop_id=98765"}},
	}}

	if err := f.importer.Run(context.Background(), "job-1", source); err != nil {
		t.Fatalf("run: %v", err)
	}
	staged, err := f.staging.GetStaged("job-1")
	if err != nil {
		t.Fatalf("get staged: %v", err)
	}
	row := staged[0]
	if row.Marketplace != models.MarketplaceLazada || row.ProductID != "4578901234" || row.ShopID != "98765" {
		t.Fatalf("identity = %+v", row)
	}
	if row.Name != "realme Note 60" {
		t.Fatalf("name = %q", row.Name)
	}
	if row.RegularPrice == nil || *row.RegularPrice != 1299 {
		t.Fatalf("regular = %v", row.RegularPrice)
	}
	if !strings.Contains(row.AffiliateURL, "laz_trackid=2:501234:clk") {
		t.Fatalf("affiliate url = %q", row.AffiliateURL)
	}
}

func TestImportFailsWithoutMirror(t *testing.T) {
	log := logger.NewLogger(nil, "[test]")
	kv := storage.NewMemoryStore()
	imp := New(
		storage.NewMirror(filepath.Join(t.TempDir(), "absent.json"), log),
		storage.NewStagingStore(kv),
		storage.NewJobStatusStore(kv),
		testAffiliate, log,
	)

	if err := imp.Run(context.Background(), "job-1", &fakeSource{}); err == nil {
		t.Fatal("expected error for missing mirror")
	}
	job, err := storage.NewJobStatusStore(kv).Get("job-1")
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if job.Status != models.JobFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
}
