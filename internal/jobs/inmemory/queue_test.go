package inmemory

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/jobs"
)

// waitForStatus polls the store until the job reaches status or the deadline passes.
func waitForStatus(t *testing.T, s *Store, jobID string, status jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := s.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state %+v", jobID, status, job)
	return nil
}

func newJob() *jobs.ExportJob {
	start := civil.Date{Year: 2024, Month: 3, Day: 1}
	return &jobs.ExportJob{UserID: "123", StartDate: start, EndDate: start.AddDays(6)}
}

func TestQueue_PublishAssignsDefaults(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 1, s)
	defer q.Close()

	job := newJob()
	if err := q.PublishExport(context.Background(), job); err != nil {
		t.Fatalf("PublishExport failed: %v", err)
	}

	if job.JobID == "" {
		t.Error("expected job id to be assigned")
	}
	if job.Status != jobs.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("max retries = %d, want %d", job.MaxRetries, jobs.DefaultMaxRetries)
	}
	if _, err := s.GetJob(context.Background(), job.JobID); err != nil {
		t.Errorf("job not saved: %v", err)
	}
}

func TestQueue_ProcessesJob(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 2, s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		job.ObjectURI = "gs://bucket/exports/" + job.JobID + ".csv"
		job.Rows = 3
		return nil
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := newJob()
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport failed: %v", err)
	}

	done := waitForStatus(t, s, job.JobID, jobs.JobStatusCompleted)
	if done.ObjectURI == "" || done.Rows != 3 {
		t.Errorf("unexpected completed job %+v", done)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("expected start and completion times")
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 1, s)
	q.SetRetryBackoff(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("bucket not found")
	})

	job := newJob()
	job.MaxRetries = 2
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport failed: %v", err)
	}

	failed := waitForStatus(t, s, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", failed.RetryCount)
	}
	if failed.Error != "bucket not found" {
		t.Errorf("error = %q", failed.Error)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	_ = q.Stop(context.Background())
}

func TestQueue_RetryAfterStopMarksFailed(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 1, s)
	q.SetRetryBackoff(200 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		return errors.New("bucket not found")
	})

	job := newJob()
	job.MaxRetries = 1
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport failed: %v", err)
	}

	waitForStatus(t, s, job.JobID, jobs.JobStatusRetrying)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	failed := waitForStatus(t, s, job.JobID, jobs.JobStatusFailed)
	if !strings.Contains(failed.Error, "retry not scheduled") {
		t.Errorf("error = %q, want retry not scheduled", failed.Error)
	}
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := q.PublishExport(context.Background(), newJob()); err == nil {
		t.Error("expected error publishing to a closed queue")
	}
	if err := q.Start(context.Background(), func(ctx context.Context, job *jobs.ExportJob) error { return nil }); err == nil {
		t.Error("expected error starting a closed queue")
	}
}
