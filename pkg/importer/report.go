package importer

import (
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
)

// MaxErrorDetails caps the error list returned to the operator. The
// error count always reflects the true total.
const MaxErrorDetails = 10

// ReportBuilder folds per-row outcomes into an ImportResult
type ReportBuilder struct {
	processed int
	created   int
	updated   int
	skipped   int
	errors    []models.RowError
}

// NewReportBuilder creates an empty report builder
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Created records a row that produced a new client
func (b *ReportBuilder) Created() {
	b.processed++
	b.created++
}

// Updated records a row merged into an existing client
func (b *ReportBuilder) Updated() {
	b.processed++
	b.updated++
}

// Skipped records a row left untouched by the skip strategy
func (b *ReportBuilder) Skipped() {
	b.processed++
	b.skipped++
}

// Errored records a row-level failure. Row numbers are 1-indexed against
// the source file with the header row excluded.
func (b *ReportBuilder) Errored(row int, message string) {
	b.processed++
	b.errors = append(b.errors, models.RowError{Row: row, Message: message})
}

// Result produces the final aggregate. Errors are ordered by source row
// and capped at MaxErrorDetails for display.
func (b *ReportBuilder) Result() *models.ImportResult {
	errs := make([]models.RowError, len(b.errors))
	copy(errs, b.errors)
	sort.Slice(errs, func(i, j int) bool {
		return errs[i].Row < errs[j].Row
	})

	detail := errs
	if len(detail) > MaxErrorDetails {
		detail = detail[:MaxErrorDetails]
	}

	return &models.ImportResult{
		TotalProcessed: b.processed,
		SuccessCount:   b.created + b.updated,
		ErrorCount:     len(b.errors),
		SkippedCount:   b.skipped,
		Errors:         detail,
	}
}
