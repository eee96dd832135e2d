// Package app wires the pipeline services behind a small HTTP surface and a
// background job dispatcher.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/business/services/importer"
	"gadgetsync/internal/pipeline/business/services/refresh"
	syncsvc "gadgetsync/internal/pipeline/business/services/sync"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/sheets"
	"gadgetsync/metrics"
	"gadgetsync/pkg/logger"
)

// ErrSyncInFlight rejects a second sync submission while one is running. Two
// concurrent syncs would race on the mirror rewrite.
var ErrSyncInFlight = fmt.Errorf("a sync job is already running")

// jobTimeout bounds any single background job.
const jobTimeout = 30 * time.Minute

// Dispatcher launches pipeline jobs in the background and tracks their
// status through the job status store.
type Dispatcher struct {
	importer  *importer.Importer
	refresher *refresh.Refresher
	engine    *syncsvc.Engine
	staging   *storage.StagingStore
	jobStatus *storage.JobStatusStore
	log       logger.Logger

	syncInFlight atomic.Bool
}

func NewDispatcher(imp *importer.Importer, ref *refresh.Refresher, engine *syncsvc.Engine,
	staging *storage.StagingStore, jobStatus *storage.JobStatusStore, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		importer:  imp,
		refresher: ref,
		engine:    engine,
		staging:   staging,
		jobStatus: jobStatus,
		log:       log,
	}
}

// StartImport parses a sheet in the background and returns the new job id
// immediately. Progress is readable from the job status store.
func (d *Dispatcher) StartImport(source sheets.Source) string {
	jobID := uuid.NewString()
	go d.run("import", jobID, func(ctx context.Context) error {
		return d.importer.Run(ctx, jobID, source)
	})
	return jobID
}

// StartRefresh rebuilds the mirror in the background.
func (d *Dispatcher) StartRefresh() string {
	jobID := uuid.NewString()
	go d.run("refresh", jobID, func(ctx context.Context) error {
		_, err := d.refresher.Run(ctx, jobID)
		return err
	})
	return jobID
}

// StartSync consumes the staged rows of an earlier import job. The sync
// continues under the same job id, so one id tracks the whole
// import-review-sync lifecycle. At most one sync runs at a time.
func (d *Dispatcher) StartSync(jobID string) error {
	rows, err := d.staging.GetStaged(jobID)
	if err != nil {
		return err
	}
	if !d.syncInFlight.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	go func() {
		defer d.syncInFlight.Store(false)
		d.run("sync", jobID, func(ctx context.Context) error {
			_, err := d.engine.Run(ctx, jobID, rows)
			return err
		})
	}()
	return nil
}

// run executes one job with a bounded context and panic containment, then
// records its outcome.
func (d *Dispatcher) run(kind, jobID string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s job panicked: %v", kind, r)
				d.log.Log("%v", err)
				if _, statusErr := d.jobStatus.Transition(models.SyncJob{JobID: jobID}, models.JobFailed, err.Error()); statusErr != nil {
					d.log.Log("could not record panic: %v", statusErr)
				}
			}
		}()
		err = job(ctx)
	}()

	state := "complete"
	if err != nil {
		state = "failed"
		d.log.Log("%s job %s failed: %v", kind, jobID, err)
	}
	metrics.RecordJob(kind, state)
}
