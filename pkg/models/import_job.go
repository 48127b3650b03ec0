package models

import "time"

// JobStatus is the lifecycle state of an import job.
// Queued -> Previewed -> Executing -> Completed | Failed
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusPreviewed JobStatus = "previewed"
	JobStatusExecuting JobStatus = "executing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the job can no longer change state
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ImportJob is one upload-to-result lifecycle instance of the import pipeline.
// Downstream cleanup tooling reads these records to tell imported clients
// apart from manually entered ones.
type ImportJob struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	Filename     string     `json:"filename" db:"filename"`
	Status       JobStatus  `json:"status" db:"status"`
	TotalRows    int        `json:"total_rows" db:"total_rows"`
	SuccessCount int        `json:"success_count" db:"success_count"`
	ErrorCount   int        `json:"error_count" db:"error_count"`
	SkippedCount int        `json:"skipped_count" db:"skipped_count"`
	Error        *string    `json:"error,omitempty" db:"error"`
	UploadedAt   time.Time  `json:"uploaded_at" db:"uploaded_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ImportPreview is returned from upload: what was parsed plus the
// heuristic mapping proposal the operator can adjust before Execute.
type ImportPreview struct {
	JobID             string          `json:"job_id"`
	Headers           []string        `json:"headers"`
	SampleRows        [][]string      `json:"sample_rows"`
	TotalRows         int             `json:"total_rows"`
	SuggestedMappings []ColumnMapping `json:"suggested_mappings"`
}

// RowError is one row-level failure, 1-indexed against the source file
// with the header row excluded
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult aggregates per-row outcomes for a completed execution.
// Errors holds at most a bounded prefix; ErrorCount is the true total.
type ImportResult struct {
	TotalProcessed int        `json:"total_processed"`
	SuccessCount   int        `json:"success_count"`
	ErrorCount     int        `json:"error_count"`
	SkippedCount   int        `json:"skipped_count"`
	Errors         []RowError `json:"errors"`
}

// ImportJobListResponse is the response for listing import jobs
type ImportJobListResponse struct {
	Items      []ImportJob `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
