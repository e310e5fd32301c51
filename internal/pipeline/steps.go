package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// CSVContentType is the content type of uploaded exports.
const CSVContentType = "text/csv"

// PipelineStep represents a single step in the export pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID    string
	StartDate civil.Date
	EndDate   civil.Date
	CreatedAt time.Time

	Records   []expense.Record
	Table     Table
	Summary   Summary
	CSV       []byte
	ObjectURI string
}

// ObjectName is where the export for this state is stored in the bucket.
func (s *PipelineState) ObjectName() string {
	return fmt.Sprintf("exports/%s/%s_%s_%s.csv",
		s.UserID, s.StartDate, s.EndDate, s.CreatedAt.UTC().Format("20060102T150405Z"))
}

// Step 1: FetchRecordsStep loads the rows in range.
type FetchRecordsStep struct {
	Ingestion DataIngestion
}

func (s *FetchRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	records, err := s.Ingestion.FetchRange(ctx, state.UserID, state.StartDate, state.EndDate)
	if err != nil {
		return err
	}
	state.Records = records
	return nil
}

// Step 2: TransformStep builds the daily table and its summary.
type TransformStep struct {
	Transformation DataTransformation
}

func (s *TransformStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Table = s.Transformation.ToTable(state.Records)
	state.Summary = Summarize(state.Table)
	return nil
}

// Step 3: RenderCSVStep renders the table.
type RenderCSVStep struct{}

func (s *RenderCSVStep) Execute(ctx context.Context, state *PipelineState) error {
	var buf bytes.Buffer
	if err := state.Table.WriteCSV(&buf); err != nil {
		return err
	}
	state.CSV = buf.Bytes()
	return nil
}

// Step 4: UploadStep stores the CSV in the export bucket.
type UploadStep struct {
	Uploader Uploader
	Bucket   string
}

func (s *UploadStep) Execute(ctx context.Context, state *PipelineState) error {
	uri, err := s.Uploader.UploadBytes(ctx, s.Bucket, state.ObjectName(), CSVContentType, state.CSV)
	if err != nil {
		return err
	}
	state.ObjectURI = uri
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewReportPipeline fetches and tabulates without uploading.
func NewReportPipeline(ingestion DataIngestion, transformation DataTransformation) *Pipeline {
	return NewPipeline(
		&FetchRecordsStep{Ingestion: ingestion},
		&TransformStep{Transformation: transformation},
		&RenderCSVStep{},
	)
}

// NewExportPipeline creates the 4-step pipeline that exports a range to the bucket.
func NewExportPipeline(ingestion DataIngestion, transformation DataTransformation, uploader Uploader, bucket string) *Pipeline {
	return NewPipeline(
		&FetchRecordsStep{Ingestion: ingestion},
		&TransformStep{Transformation: transformation},
		&RenderCSVStep{},
		&UploadStep{Uploader: uploader, Bucket: bucket},
	)
}
