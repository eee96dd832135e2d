package models

import "time"

// JobState is the lifecycle of a background job as seen through the status
// store: starting -> processing -> complete | failed.
type JobState string

const (
	JobStarting   JobState = "starting"
	JobProcessing JobState = "processing"
	JobComplete   JobState = "complete"
	JobFailed     JobState = "failed"
)

// SyncJob is the JSON status object kept under job:<id> for the job's
// duration. It is overwritten in place on every state transition.
type SyncJob struct {
	JobID     string    `json:"job_id"`
	Status    JobState  `json:"status"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	TotalFound  int
	TotalSynced int
	FailedIDs   []int
	ChunksTotal int
	ChunksFail  int
}

// AuditLogEntry is the durable record of one sync attempt, appended to the
// audit log and never mutated.
type AuditLogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	TotalFound   int       `json:"total_found"`
	TotalSynced  int       `json:"total_synced"`
	FailedIDs    []int     `json:"failed_ids,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
