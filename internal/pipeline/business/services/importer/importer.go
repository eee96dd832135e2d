// Package importer runs the staging half of the pipeline: parse every sheet
// row, resolve it against the catalog mirror and park the results for human
// review.
package importer

import (
	"context"
	"fmt"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/business/services/match"
	"gadgetsync/internal/pipeline/business/services/parse"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/sheets"
	"gadgetsync/metrics"
	"gadgetsync/pkg/logger"
)

type Importer struct {
	mirror    *storage.Mirror
	staging   *storage.StagingStore
	jobStatus *storage.JobStatusStore
	affiliate parse.AffiliateParams
	log       logger.Logger
}

func New(mirror *storage.Mirror, staging *storage.StagingStore, jobStatus *storage.JobStatusStore, affiliate parse.AffiliateParams, log logger.Logger) *Importer {
	return &Importer{
		mirror:    mirror,
		staging:   staging,
		jobStatus: jobStatus,
		affiliate: affiliate,
		log:       log,
	}
}

// Run parses the sheet, resolves each row against the mirror and stages the
// results under the job id. Parse-local problems skip a row; a missing
// mirror or unreadable sheet fails the whole job.
func (i *Importer) Run(ctx context.Context, jobID string, source sheets.Source) error {
	job := models.SyncJob{JobID: jobID, Status: models.JobStarting}
	if err := i.jobStatus.Set(job); err != nil {
		return fmt.Errorf("init job status: %w", err)
	}

	records, err := i.mirror.Load()
	if err != nil {
		return i.fail(job, fmt.Errorf("load mirror: %w", err))
	}
	index := match.NewCatalogIndex(records)

	gridRows, err := source.Rows(ctx)
	if err != nil {
		return i.fail(job, fmt.Errorf("read sheet: %w", err))
	}

	job, err = i.jobStatus.Transition(job, models.JobProcessing,
		fmt.Sprintf("parsing %d rows against %d catalog records", len(gridRows), index.Len()))
	if err != nil {
		return err
	}

	var staged []models.ImportRow
	matched := 0
	for _, gridRow := range gridRows {
		row, ok := i.parseRow(gridRow, index)
		if !ok {
			continue
		}
		if row.Status == models.StatusMatched {
			matched++
		}
		metrics.RecordImportRow(string(row.Status))
		staged = append(staged, row)
	}

	if err := i.staging.Stage(jobID, staged); err != nil {
		return i.fail(job, fmt.Errorf("stage rows: %w", err))
	}

	message := fmt.Sprintf("staged %d rows (%d matched, %d unmatched)", len(staged), matched, len(staged)-matched)
	i.log.Log("%s", message)
	_, err = i.jobStatus.Transition(job, models.JobComplete, message)
	return err
}

// parseRow turns one grid row into an ImportRow. Rows with no usable text
// are dropped; everything else degrades to UNMATCHED rather than erroring.
func (i *Importer) parseRow(gridRow sheets.Row, index *match.CatalogIndex) (models.ImportRow, bool) {
	cell := gridRow.First()
	if cell.Text == "" && cell.Hyperlink == "" {
		return models.ImportRow{}, false
	}

	identity := parse.ParseSourceURL(cell.Hyperlink)

	var name string
	var sale, regular *float64
	switch identity.Marketplace {
	case models.MarketplaceLazada:
		name = parse.CleanNameLazada(cell.Text)
		sale, regular = parse.ExtractPricesLazada(cell.Text)
	default:
		name = parse.CleanName(cell.Text)
		sale, regular = parse.ExtractPricesShopee(cell.Text)
	}
	if name == "" {
		i.log.Log("skipping row with no recognizable name: %.60q", cell.Text)
		return models.ImportRow{}, false
	}

	slug := parse.Slugify(name)
	row := models.ImportRow{
		RawText:      cell.Text,
		Name:         name,
		Slug:         slug,
		SalePrice:    sale,
		RegularPrice: regular,
		SourceURL:    cell.Hyperlink,
		AffiliateURL: parse.ConvertToAffiliateLink(cell.Hyperlink, slug, i.affiliate),
		Marketplace:  identity.Marketplace,
		ProductID:    identity.ProductID,
		ShopID:       identity.ShopID,
	}

	result := index.Resolve(&row)
	i.log.Log("resolved %q: %s", row.Name, result)
	row.Status = result.Status
	row.NearestMatchName = result.NearestMatchName
	row.ConfidenceNote = result.ConfidenceNote
	if result.Status == models.StatusMatched {
		row.MatchedCatalogID = result.MatchedID
		// The catalog is authoritative once identity is established.
		row.Name = result.MatchedName
		if result.MatchedSlug != "" {
			row.Slug = result.MatchedSlug
		}
	}
	return row, true
}

func (i *Importer) fail(job models.SyncJob, err error) error {
	i.log.Log("import failed: %v", err)
	if _, statusErr := i.jobStatus.Transition(job, models.JobFailed, err.Error()); statusErr != nil {
		i.log.Log("could not record failure: %v", statusErr)
	}
	return err
}
