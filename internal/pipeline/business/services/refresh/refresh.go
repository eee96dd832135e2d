// Package refresh rebuilds the local catalog mirror from the external store.
// The mirror is what matching and sync read; a stale mirror only costs match
// quality, so refresh runs on demand rather than inline with imports.
package refresh

import (
	"context"
	"fmt"
	"time"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/wc"
	"gadgetsync/pkg/logger"
)

// CatalogFetcher is the slice of the WooCommerce client the refresher needs.
type CatalogFetcher interface {
	FetchAllProducts(ctx context.Context) ([]wc.Product, error)
}

type Refresher struct {
	catalog   CatalogFetcher
	mirror    *storage.Mirror
	jobStatus *storage.JobStatusStore
	log       logger.Logger
}

func NewRefresher(catalog CatalogFetcher, mirror *storage.Mirror, jobStatus *storage.JobStatusStore, log logger.Logger) *Refresher {
	return &Refresher{catalog: catalog, mirror: mirror, jobStatus: jobStatus, log: log}
}

// Run fetches the full product listing and rewrites the mirror. The rewrite
// is all-or-nothing: a fetch failure leaves the previous mirror untouched.
func (r *Refresher) Run(ctx context.Context, jobID string) (int, error) {
	job := models.SyncJob{JobID: jobID, Status: models.JobStarting, StartedAt: time.Now().UTC()}
	if err := r.jobStatus.Set(job); err != nil {
		return 0, fmt.Errorf("init job status: %w", err)
	}

	job, err := r.jobStatus.Transition(job, models.JobProcessing, "fetching full catalog")
	if err != nil {
		return 0, err
	}

	products, err := r.catalog.FetchAllProducts(ctx)
	if err != nil {
		r.log.Log("mirror refresh failed: %v", err)
		if _, statusErr := r.jobStatus.Transition(job, models.JobFailed, err.Error()); statusErr != nil {
			r.log.Log("could not record failure: %v", statusErr)
		}
		return 0, err
	}

	records := make([]models.ProductRecord, 0, len(products))
	for i := range products {
		records = append(records, products[i].ToRecord())
	}
	if err := r.mirror.Save(records); err != nil {
		if _, statusErr := r.jobStatus.Transition(job, models.JobFailed, err.Error()); statusErr != nil {
			r.log.Log("could not record failure: %v", statusErr)
		}
		return 0, fmt.Errorf("save mirror: %w", err)
	}

	r.log.Log("mirror refreshed: %d products", len(records))
	_, err = r.jobStatus.Transition(job, models.JobComplete, fmt.Sprintf("mirror refreshed with %d products", len(records)))
	return len(records), err
}
