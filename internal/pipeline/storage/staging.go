package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gadgetsync/internal/pipeline/business/models"
)

// StagingTTL is how long parsed rows wait for review before the import has
// to be re-run.
const StagingTTL = time.Hour

// JobStatusTTL bounds how long a finished job's status stays readable.
const JobStatusTTL = time.Hour

// StagingStore holds matched and unmatched import rows between the import
// job and the reviewer's approval, keyed by job id.
type StagingStore struct {
	kv KVStore
}

func NewStagingStore(kv KVStore) *StagingStore {
	return &StagingStore{kv: kv}
}

func stagingKey(jobID string) string { return "staging:" + jobID }

// Stage writes the full row set for a job, starting the review TTL.
func (s *StagingStore) Stage(jobID string, rows []models.ImportRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal staged rows: %w", err)
	}
	return s.kv.Set(stagingKey(jobID), data, StagingTTL)
}

// GetStaged returns the staged rows for a job, or ErrNotFound once the TTL
// has elapsed and the import must be re-run.
func (s *StagingStore) GetStaged(jobID string) ([]models.ImportRow, error) {
	data, err := s.kv.Get(stagingKey(jobID))
	if err != nil {
		return nil, err
	}
	var rows []models.ImportRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse staged rows: %w", err)
	}
	return rows, nil
}

// UpdateStaged replaces the staged rows after a reviewer edit. Resolution is
// not re-run; the reviewer's corrections stand as written.
func (s *StagingStore) UpdateStaged(jobID string, rows []models.ImportRow) error {
	return s.Stage(jobID, rows)
}

// Discard drops a job's staged rows once sync has consumed them.
func (s *StagingStore) Discard(jobID string) error {
	return s.kv.Delete(stagingKey(jobID))
}

// JobStatusStore keeps the JSON status object for each background job.
type JobStatusStore struct {
	kv KVStore
}

func NewJobStatusStore(kv KVStore) *JobStatusStore {
	return &JobStatusStore{kv: kv}
}

func jobKey(jobID string) string { return "job:" + jobID }

func (s *JobStatusStore) Get(jobID string) (models.SyncJob, error) {
	data, err := s.kv.Get(jobKey(jobID))
	if err != nil {
		return models.SyncJob{}, err
	}
	var job models.SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		return models.SyncJob{}, fmt.Errorf("parse job status: %w", err)
	}
	return job, nil
}

// Set overwrites the job's status object in place.
func (s *JobStatusStore) Set(job models.SyncJob) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	return s.kv.Set(jobKey(job.JobID), data, JobStatusTTL)
}

// Transition is shorthand for overwriting the state and message.
func (s *JobStatusStore) Transition(job models.SyncJob, state models.JobState, message string) (models.SyncJob, error) {
	job.Status = state
	job.Message = message
	return job, s.Set(job)
}

// AlertSubscription is a reviewer-registered price watch on one catalog item.
type AlertSubscription struct {
	ProductID   int     `json:"product_id"`
	Email       string  `json:"email,omitempty"`
	TargetPrice float64 `json:"target_price"`
}

// AlertStore keeps price-alert subscriptions per catalog product.
type AlertStore struct {
	kv KVStore
}

func NewAlertStore(kv KVStore) *AlertStore {
	return &AlertStore{kv: kv}
}

func alertKey(productID int) string { return fmt.Sprintf("price_alerts:%d", productID) }

// Subscribe appends a subscription to the product's alert list. Alert lists
// do not expire.
func (s *AlertStore) Subscribe(sub AlertSubscription) error {
	if sub.ProductID <= 0 {
		return fmt.Errorf("alert subscription has no product id")
	}
	subs, err := s.Subscriptions(sub.ProductID)
	if err != nil && err != ErrNotFound {
		return err
	}
	subs = append(subs, sub)
	data, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("marshal alert subscriptions: %w", err)
	}
	return s.kv.Set(alertKey(sub.ProductID), data, 0)
}

func (s *AlertStore) Subscriptions(productID int) ([]AlertSubscription, error) {
	data, err := s.kv.Get(alertKey(productID))
	if err != nil {
		return nil, err
	}
	var subs []AlertSubscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parse alert subscriptions: %w", err)
	}
	return subs, nil
}
