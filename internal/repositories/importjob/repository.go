package importjob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const columns = "id, tenant_id, filename, status, total_rows, success_count, error_count, skipped_count, error, uploaded_at, completed_at, created_at, updated_at"

// Repository handles import job persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new import job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new import job
func (r *Repository) Create(ctx context.Context, tenantID string, filename string, totalRows int) (*models.ImportJob, error) {
	ctx, span := tracing.StartSpan(ctx, "importjob.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"filename":  filename,
	})

	now := time.Now().UTC()
	job := &models.ImportJob{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Filename:   filename,
		Status:     models.JobStatusQueued,
		TotalRows:  totalRows,
		UploadedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("import_jobs")
	sb.Cols("id", "tenant_id", "filename", "status", "total_rows", "success_count", "error_count", "skipped_count", "uploaded_at", "created_at", "updated_at")
	sb.Values(job.ID, job.TenantID, job.Filename, job.Status, job.TotalRows, 0, 0, 0, job.UploadedAt, job.CreatedAt, job.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create import job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create import job")
	}

	log.WithFields(map[string]any{"id": job.ID}).Info("Created import job")
	return job, nil
}

// Get retrieves an import job by ID
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.ImportJob, error) {
	ctx, span := tracing.StartSpan(ctx, "importjob.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("import_jobs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var job models.ImportJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("import job %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get import job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get import job")
	}

	return &job, nil
}

// List retrieves import jobs for a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.ImportJob, int, error) {
	ctx, span := tracing.StartSpan(ctx, "importjob.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("import_jobs")
	countSb.Where(countSb.Equal("tenant_id", tenantID))

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count import jobs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count import jobs")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("import_jobs")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("uploaded_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var jobs []models.ImportJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list import jobs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list import jobs")
	}

	return jobs, totalCount, nil
}

// TransitionStatus moves a job from one status to another. The update is
// conditional on the current status so concurrent transitions lose; it
// returns false when no row was in the expected state.
func (r *Repository) TransitionStatus(ctx context.Context, tenantID, id string, from, to models.JobStatus) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "importjob.Repository.TransitionStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("import_jobs")
	sb.Set(
		sb.Assign("status", to),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", from),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to transition import job status")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update import job")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Finalize records the terminal status and counts for a job
func (r *Repository) Finalize(ctx context.Context, tenantID, id string, status models.JobStatus, result *models.ImportResult, errMsg *string) error {
	ctx, span := tracing.StartSpan(ctx, "importjob.Repository.Finalize")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("import_jobs")
	assignments := []string{
		sb.Assign("status", status),
		sb.Assign("error", errMsg),
		sb.Assign("completed_at", now),
		sb.Assign("updated_at", now),
	}
	if result != nil {
		assignments = append(assignments,
			sb.Assign("success_count", result.SuccessCount),
			sb.Assign("error_count", result.ErrorCount),
			sb.Assign("skipped_count", result.SkippedCount),
		)
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to finalize import job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finalize import job")
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("import job %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": status}).Info("Finalized import job")
	return nil
}
