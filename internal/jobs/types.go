// Package jobs defines asynchronous export jobs and the queue contracts that run them.
package jobs

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExport renders a user's expenses for a date range and uploads them.
	JobTypeExport JobType = "export"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and will be enqueued again.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a published job does not set MaxRetries.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by JobStore lookups for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// ExportJob exports UserID's expenses between StartDate and EndDate inclusive.
type ExportJob struct {
	JobID     string     `json:"job_id"`
	UserID    string     `json:"user_id"`
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`

	Status JobStatus `json:"status"`

	// ObjectURI is the gs:// location of the CSV once the job completes.
	ObjectURI string `json:"object_uri,omitempty"`

	// Rows is the number of expense rows exported.
	Rows int `json:"rows"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Type returns JobTypeExport.
func (j *ExportJob) Type() JobType {
	return JobTypeExport
}

// Publisher enqueues jobs.
// This abstraction allows for different queue implementations (in-memory, Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishExport enqueues an export job, assigning its id and defaults.
	PublishExport(ctx context.Context, job *ExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs; handler is called once per attempt.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one attempt of a job. It may set ObjectURI and Rows
// on the job. A returned error marks the attempt failed.
type JobHandler func(ctx context.Context, job *ExportJob) error

// JobStore tracks job state for the status endpoints.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExportJob) error

	// GetJob returns ErrJobNotFound for unknown ids.
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
