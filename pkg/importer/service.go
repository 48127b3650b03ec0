// Package importer owns the upload, preview and execute lifecycle of an
// import job
package importer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/mapper"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/tabular"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/transform"
)

const (
	sampleRowCount = 5

	executeBaseTimeout   = 30 * time.Second
	executePerRowTimeout = 100 * time.Millisecond
)

// JobStore persists import job metadata and lifecycle state
type JobStore interface {
	Create(ctx context.Context, tenantID, filename string, totalRows int) (*models.ImportJob, error)
	Get(ctx context.Context, tenantID, id string) (*models.ImportJob, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.ImportJob, int, error)
	TransitionStatus(ctx context.Context, tenantID, id string, from, to models.JobStatus) (bool, error)
	Finalize(ctx context.Context, tenantID, id string, status models.JobStatus, result *models.ImportResult, errMsg *string) error
}

// ClientStore is the client collaborator the import writes into
type ClientStore interface {
	resolver.ClientFinder
	Create(ctx context.Context, tenantID string, fields models.ClientFields) (*models.Client, error)
	Update(ctx context.Context, tenantID, id string, fields models.ClientFields) (*models.Client, error)
}

// RowCache retains parsed rows between preview and execute. Get returns
// nil when the entry has expired.
type RowCache interface {
	Put(ctx context.Context, tenantID, jobID string, doc *tabular.Document) error
	Get(ctx context.Context, tenantID, jobID string) (*tabular.Document, error)
	Delete(ctx context.Context, tenantID, jobID string) error
}

// EventPublisher emits the per-record import audit signal
type EventPublisher interface {
	PublishClientImported(ctx context.Context, event *events.ClientImportedEvent) error
}

// Service orchestrates the import pipeline
type Service struct {
	jobs      JobStore
	clients   ClientStore
	cache     RowCache
	resolver  *resolver.Resolver
	publisher EventPublisher
	logger    ectologger.Logger
	limits    tabular.Limits
}

// NewService creates a new import service
func NewService(
	jobs JobStore,
	clients ClientStore,
	cache RowCache,
	res *resolver.Resolver,
	publisher EventPublisher,
	logger ectologger.Logger,
	limits tabular.Limits,
) *Service {
	return &Service{
		jobs:      jobs,
		clients:   clients,
		cache:     cache,
		resolver:  res,
		publisher: publisher,
		logger:    logger,
		limits:    limits,
	}
}

// Upload parses an uploaded file, creates the job, caches the full row set
// for execute and returns the preview with a suggested mapping. Preview
// never touches client data.
func (s *Service) Upload(ctx context.Context, tenantID, filename string, file io.Reader) (*models.ImportPreview, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Service.Upload")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"filename":  filename,
	})

	format, err := tabular.DetectFormat(filename)
	if err != nil {
		return nil, httperror.WrapError(http.StatusBadRequest, err)
	}

	doc, err := tabular.Parse(file, format, s.limits)
	if err != nil {
		return nil, uploadError(err)
	}

	job, err := s.jobs.Create(ctx, tenantID, filename, len(doc.Rows))
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, tenantID, job.ID, doc); err != nil {
		log.WithError(err).Error("Failed to cache parsed rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage uploaded rows")
	}

	if _, err := s.jobs.TransitionStatus(ctx, tenantID, job.ID, models.JobStatusQueued, models.JobStatusPreviewed); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{"job_id": job.ID, "total_rows": len(doc.Rows)}).Info("Parsed upload")

	return &models.ImportPreview{
		JobID:             job.ID,
		Headers:           doc.Headers,
		SampleRows:        doc.SampleRows(sampleRowCount),
		TotalRows:         len(doc.Rows),
		SuggestedMappings: mapper.Propose(doc.Headers),
	}, nil
}

// GetJob returns one job's status and metadata
func (s *Service) GetJob(ctx context.Context, tenantID, jobID string) (*models.ImportJob, error) {
	return s.jobs.Get(ctx, tenantID, jobID)
}

// History lists past import jobs, newest first
func (s *Service) History(ctx context.Context, tenantID string, page, pageSize int) (*models.ImportJobListResponse, error) {
	jobs, total, err := s.jobs.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &models.ImportJobListResponse{
		Items:      jobs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Execute runs a previewed job to completion with the operator's mapping
// and duplicate strategy. Rows are processed sequentially; a failing row
// is recorded and never aborts the batch.
func (s *Service) Execute(ctx context.Context, tenantID, jobID string, mappings []models.ColumnMapping, strategy models.DuplicateStrategy) (*models.ImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Service.Execute")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"job_id":    jobID,
		"strategy":  strategy,
	})

	if err := validateExecuteRequest(mappings, strategy); err != nil {
		return nil, err
	}

	job, err := s.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case models.JobStatusPreviewed:
		// proceed
	case models.JobStatusExecuting:
		return nil, httperror.NewHTTPError(http.StatusConflict, "import job is already executing")
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "import job is %s and cannot be executed", job.Status)
	}

	doc, err := s.cache.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load staged rows")
	}
	if doc == nil {
		return nil, httperror.NewHTTPError(http.StatusGone, "import job expired: upload the file again")
	}

	columnIndex, err := buildColumnIndex(doc.Headers, mappings)
	if err != nil {
		return nil, err
	}

	// At-most-once execution: the conditional transition loses against a
	// concurrent execute of the same job.
	ok, err := s.jobs.TransitionStatus(ctx, tenantID, jobID, models.JobStatusPreviewed, models.JobStatusExecuting)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusConflict, "import job is already executing")
	}

	timeout := executeBaseTimeout + time.Duration(len(doc.Rows))*executePerRowTimeout
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := NewReportBuilder()
	failTimeout := func() (*models.ImportResult, error) {
		msg := "import timed out: re-run the job to retry"
		if err := s.jobs.Finalize(ctx, tenantID, jobID, models.JobStatusFailed, report.Result(), &msg); err != nil {
			log.WithError(err).Error("Failed to mark timed out job failed")
		}
		return nil, httperror.NewHTTPError(http.StatusGatewayTimeout, msg)
	}

	// Every row resolves against the store state prior to the job, so
	// writes happen only after all rows are resolved. Two rows sharing a
	// match key in one file resolve identically; neither sees a record
	// the other produced.
	plans := make([]rowPlan, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		if execCtx.Err() != nil {
			return failTimeout()
		}

		fields := assembleFields(row.Cells, mappings, columnIndex)
		if fields.Name == "" {
			report.Errored(row.Number, "name is required")
			continue
		}

		resolution, err := s.resolver.Resolve(execCtx, tenantID, fields, strategy)
		if err != nil {
			report.Errored(row.Number, err.Error())
			log.WithFields(map[string]any{"row": row.Number}).WithError(err).Debug("Row failed to resolve")
			continue
		}
		plans = append(plans, rowPlan{rowNum: row.Number, fields: fields, resolution: resolution})
	}

	for _, plan := range plans {
		if execCtx.Err() != nil {
			return failTimeout()
		}

		if err := s.applyRow(execCtx, tenantID, jobID, plan, report); err != nil {
			report.Errored(plan.rowNum, err.Error())
			log.WithFields(map[string]any{"row": plan.rowNum}).WithError(err).Debug("Row failed")
		}
	}

	result := report.Result()
	if err := s.jobs.Finalize(ctx, tenantID, jobID, models.JobStatusCompleted, result, nil); err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, tenantID, jobID); err != nil {
		log.WithError(err).Warn("Failed to release staged rows")
	}

	log.WithFields(map[string]any{
		"total":   result.TotalProcessed,
		"success": result.SuccessCount,
		"errors":  result.ErrorCount,
		"skipped": result.SkippedCount,
	}).Info("Import completed")

	return result, nil
}

// rowPlan is one row resolved against the pre-job store state, ready to
// be applied
type rowPlan struct {
	rowNum     int
	fields     models.ClientFields
	resolution *resolver.Resolution
}

// assembleFields builds the candidate record from one row's mapped,
// transformed cells. Cells that are empty after transformation leave
// their field absent.
func assembleFields(cells []string, mappings []models.ColumnMapping, columnIndex map[string]int) models.ClientFields {
	var fields models.ClientFields
	for _, m := range mappings {
		if m.TargetField == models.TargetSkip {
			continue
		}
		idx := columnIndex[m.SourceColumn]
		if idx >= len(cells) {
			continue
		}
		value := strings.TrimSpace(transform.Apply(cells[idx], m.Transform))
		if value == "" {
			continue
		}
		fields.Set(m.TargetField, value)
	}
	return fields
}

// applyRow persists one resolved row, recording the outcome on the
// report. The returned error is a row-level error.
func (s *Service) applyRow(ctx context.Context, tenantID, jobID string, plan rowPlan, report *ReportBuilder) error {
	switch plan.resolution.Action {
	case models.RowActionSkip:
		report.Skipped()
		return nil
	case models.RowActionUpdate:
		updated, err := s.clients.Update(ctx, tenantID, plan.resolution.Existing.ID, plan.fields)
		if err != nil {
			return err
		}
		report.Updated()
		s.publishImported(ctx, tenantID, jobID, updated, models.RowActionUpdate)
		return nil
	default:
		created, err := s.clients.Create(ctx, tenantID, plan.fields)
		if err != nil {
			return err
		}
		report.Created()
		s.publishImported(ctx, tenantID, jobID, created, models.RowActionCreate)
		return nil
	}
}

// publishImported emits the audit event for a created or updated client.
// The event is best effort; a broker failure never fails the row.
func (s *Service) publishImported(ctx context.Context, tenantID, jobID string, client *models.Client, action models.RowAction) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishClientImported(ctx, &events.ClientImportedEvent{
		TenantID:      tenantID,
		JobID:         jobID,
		ClientID:      client.ID,
		Action:        action,
		TimesImported: client.TimesImported,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish client imported event")
	}
}

// validateExecuteRequest rejects bad mappings before any row is processed
func validateExecuteRequest(mappings []models.ColumnMapping, strategy models.DuplicateStrategy) error {
	if !strategy.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown duplicate strategy %q", strategy)
	}

	nameMapped := false
	for _, m := range mappings {
		if !m.TargetField.Valid() {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown target field %q for column %q", m.TargetField, m.SourceColumn)
		}
		if !m.Transform.Valid() {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown transform %q for column %q", m.Transform, m.SourceColumn)
		}
		if m.TargetField == models.TargetName {
			nameMapped = true
		}
	}
	if !nameMapped {
		return httperror.NewHTTPError(http.StatusBadRequest, "a column must be mapped to the name field")
	}
	return nil
}

// buildColumnIndex resolves each mapped source column to its header
// position
func buildColumnIndex(headers []string, mappings []models.ColumnMapping) (map[string]int, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		positions[h] = i
	}

	index := make(map[string]int, len(mappings))
	for _, m := range mappings {
		idx, ok := positions[m.SourceColumn]
		if !ok {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "source column %q is not present in the uploaded file", m.SourceColumn)
		}
		index[m.SourceColumn] = idx
	}
	return index, nil
}

// uploadError maps parser failures onto HTTP errors
func uploadError(err error) error {
	switch {
	case errors.Is(err, tabular.ErrUnsupportedFileType):
		return httperror.WrapError(http.StatusBadRequest, err)
	case errors.Is(err, tabular.ErrFileTooLarge):
		return httperror.WrapError(http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, tabular.ErrTooManyRows):
		return httperror.WrapError(http.StatusBadRequest, err)
	case errors.Is(err, tabular.ErrEmptyFile):
		return httperror.WrapError(http.StatusBadRequest, err)
	default:
		return httperror.NewHTTPErrorf(http.StatusUnprocessableEntity, "could not parse uploaded file: %v", err)
	}
}
