// Package sync pushes reviewer-approved import rows back out: it merges them
// into the local mirror, submits bounded batch updates to the external
// catalog with retries, and leaves a durable audit trail.
//
// The engine assumes at most one sync job in flight; submission is
// serialized by the job dispatcher.
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/wc"
	"gadgetsync/metrics"
	"gadgetsync/pkg/logger"
	"gadgetsync/pkg/retry"
)

// ChunkSize keeps each batch request under the external API's per-request
// item limit.
const ChunkSize = 25

// CatalogAPI is the slice of the WooCommerce client the engine needs.
type CatalogAPI interface {
	BatchUpdate(ctx context.Context, updates []wc.ProductUpdate) (*wc.BatchResult, error)
}

// Notifier receives sync outcomes and triggered price alerts. Implementations
// must tolerate being called from the job goroutine; a nil Notifier disables
// notification entirely.
type Notifier interface {
	SyncOutcome(report models.SyncReport, failed bool)
	PriceDrop(product models.ProductRecord, newPrice float64, sub storage.AlertSubscription)
}

type Engine struct {
	mirror    *storage.Mirror
	audit     *storage.AuditLog
	catalog   CatalogAPI
	jobStatus *storage.JobStatusStore
	staging   *storage.StagingStore
	alerts    *storage.AlertStore
	notifier  Notifier
	log       logger.Logger

	chunkRetry retry.Policy
	// chunkLimiter spaces successful submissions out so a large catalog
	// does not hammer the store.
	chunkLimiter *rate.Limiter
}

// Options tune the engine's pacing; zero values select production defaults.
type Options struct {
	ChunkRetry    retry.Policy
	ChunkInterval time.Duration
}

func NewEngine(mirror *storage.Mirror, audit *storage.AuditLog, catalog CatalogAPI,
	jobStatus *storage.JobStatusStore, staging *storage.StagingStore,
	alerts *storage.AlertStore, notifier Notifier, log logger.Logger, opts Options) *Engine {

	if opts.ChunkRetry.MaxAttempts == 0 {
		opts.ChunkRetry = retry.Policy{MaxAttempts: 3, Delay: 5 * time.Second}
	}
	if opts.ChunkInterval == 0 {
		opts.ChunkInterval = time.Second
	}
	return &Engine{
		mirror:       mirror,
		audit:        audit,
		catalog:      catalog,
		jobStatus:    jobStatus,
		staging:      staging,
		alerts:       alerts,
		notifier:     notifier,
		log:          log,
		chunkRetry:   opts.ChunkRetry,
		chunkLimiter: rate.NewLimiter(rate.Every(opts.ChunkInterval), 1),
	}
}

// priceDrop is recorded during the merge so alerts fire only after the run's
// work is durably committed.
type priceDrop struct {
	record   models.ProductRecord
	newPrice float64
}

// Run executes one sync pass over the approved rows. Partial failure is
// tolerated: successful chunks stay committed, the mirror and audit log are
// always written, and the returned error marks the job failed for the queue.
func (e *Engine) Run(ctx context.Context, jobID string, approved []models.ImportRow) (models.SyncReport, error) {
	report := models.SyncReport{}

	job := models.SyncJob{JobID: jobID, Status: models.JobStarting, StartedAt: time.Now().UTC()}
	if err := e.jobStatus.Set(job); err != nil {
		return report, fmt.Errorf("init job status: %w", err)
	}

	records, err := e.mirror.Load()
	if err != nil {
		return report, e.fail(job, fmt.Errorf("load mirror: %w", err))
	}
	byID := make(map[int]*models.ProductRecord, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	job, err = e.jobStatus.Transition(job, models.JobProcessing, fmt.Sprintf("syncing %d approved rows", len(approved)))
	if err != nil {
		return report, err
	}

	// Resolve targets and merge into the in-memory mirror. Rows whose
	// target is unknown are skipped, not failed: they are looked up fresh
	// on every run, so a later mirror refresh can still pick them up.
	var (
		updates []wc.ProductUpdate
		drops   []priceDrop
	)
	for _, row := range approved {
		targetID, ok := row.TargetCatalogID()
		if !ok {
			continue
		}
		rec, found := byID[targetID]
		if !found {
			e.log.Log("skipping row %q: catalog id %d not in mirror", row.Name, targetID)
			continue
		}

		dropped := mergeRow(rec, row)
		if dropped != nil {
			drops = append(drops, priceDrop{record: *rec, newPrice: *dropped})
		}
		updates = append(updates, buildUpdate(rec))
		report.TotalFound++
	}

	// Submit in bounded chunks; one chunk failing must not abort the rest.
	chunks := chunkUpdates(updates, ChunkSize)
	report.ChunksTotal = len(chunks)
	for n, chunk := range chunks {
		if err := e.chunkLimiter.Wait(ctx); err != nil {
			return report, e.fail(job, err)
		}

		var result *wc.BatchResult
		err := e.chunkRetry.Do(ctx, func() error {
			var submitErr error
			result, submitErr = e.catalog.BatchUpdate(ctx, chunk)
			return submitErr
		})
		if err != nil {
			e.log.Log("chunk %d/%d failed: %v", n+1, len(chunks), err)
			metrics.RecordSyncChunk("failed")
			report.ChunksFail++
			for _, u := range chunk {
				report.FailedIDs = append(report.FailedIDs, u.ID)
			}
			continue
		}

		metrics.RecordSyncChunk("ok")
		itemFailures := result.FailedIDs()
		report.FailedIDs = append(report.FailedIDs, itemFailures...)
		report.TotalSynced += len(chunk) - len(itemFailures)
		e.log.Log("chunk %d/%d submitted (%d items, %d rejected)", n+1, len(chunks), len(chunk), len(itemFailures))
	}

	// One full rewrite, after every chunk has been attempted.
	if err := e.mirror.Save(records); err != nil {
		return report, e.fail(job, fmt.Errorf("save mirror: %w", err))
	}

	failed := report.ChunksFail > 0
	e.appendAudit(report, failed, "")
	e.dispatchAlerts(drops)
	if e.staging != nil {
		if err := e.staging.Discard(jobID); err != nil {
			e.log.Log("could not discard staged rows: %v", err)
		}
	}

	if failed {
		message := fmt.Sprintf("complete with %d/%d chunks failed (%d/%d items synced)",
			report.ChunksFail, report.ChunksTotal, report.TotalSynced, report.TotalFound)
		if e.notifier != nil {
			e.notifier.SyncOutcome(report, true)
		}
		if _, err := e.jobStatus.Transition(job, models.JobFailed, message); err != nil {
			e.log.Log("could not record failure: %v", err)
		}
		// Re-raise so the queue's failure bookkeeping applies even though
		// partial work is committed.
		return report, fmt.Errorf("sync %s", message)
	}

	message := fmt.Sprintf("synced %d/%d items in %d chunks", report.TotalSynced, report.TotalFound, report.ChunksTotal)
	if e.notifier != nil {
		e.notifier.SyncOutcome(report, false)
	}
	_, err = e.jobStatus.Transition(job, models.JobComplete, message)
	return report, err
}

func (e *Engine) fail(job models.SyncJob, err error) error {
	e.log.Log("sync failed: %v", err)
	e.appendAudit(models.SyncReport{}, true, err.Error())
	if _, statusErr := e.jobStatus.Transition(job, models.JobFailed, err.Error()); statusErr != nil {
		e.log.Log("could not record failure: %v", statusErr)
	}
	return err
}

func (e *Engine) appendAudit(report models.SyncReport, failed bool, errMessage string) {
	status := "complete"
	if failed {
		status = "failed"
	}
	entry := models.AuditLogEntry{
		Timestamp:    time.Now().UTC(),
		Status:       status,
		TotalFound:   report.TotalFound,
		TotalSynced:  report.TotalSynced,
		FailedIDs:    report.FailedIDs,
		ErrorMessage: errMessage,
	}
	if err := e.audit.Append(entry); err != nil {
		e.log.Log("could not append audit entry: %v", err)
	}
}

func (e *Engine) dispatchAlerts(drops []priceDrop) {
	if e.alerts == nil || e.notifier == nil {
		return
	}
	for _, drop := range drops {
		subs, err := e.alerts.Subscriptions(drop.record.ID)
		if err != nil {
			if err != storage.ErrNotFound {
				e.log.Log("could not load alert subscriptions for %d: %v", drop.record.ID, err)
			}
			continue
		}
		for _, sub := range subs {
			if drop.newPrice <= sub.TargetPrice {
				e.notifier.PriceDrop(drop.record, drop.newPrice, sub)
			}
		}
	}
}

func chunkUpdates(updates []wc.ProductUpdate, size int) [][]wc.ProductUpdate {
	var chunks [][]wc.ProductUpdate
	for start := 0; start < len(updates); start += size {
		end := start + size
		if end > len(updates) {
			end = len(updates)
		}
		chunks = append(chunks, updates[start:end])
	}
	return chunks
}
