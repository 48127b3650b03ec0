package client

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
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const columns = "id, tenant_id, name, client_id, home_email, work_email, personal_email, other_email, home_phone, work_phone, cellular_phone, other_phone, status, tags, normalized_email, normalized_phone, times_imported, created_at, updated_at"

// Repository handles client record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new client repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByNormalizedEmailOrPhone returns the existing client whose normalized
// email or phone equals the given keys, or nil when there is no match.
// When several records match, the earliest-created one is the canonical
// match.
func (r *Repository) FindByNormalizedEmailOrPhone(ctx context.Context, tenantID, email, phone string) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.FindByNormalizedEmailOrPhone")
	defer span.End()

	if email == "" && phone == "" {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("clients")

	keys := []string{}
	if email != "" {
		keys = append(keys, sb.Equal("normalized_email", email))
	}
	if phone != "" {
		keys = append(keys, sb.Equal("normalized_phone", phone))
	}
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Or(keys...),
	)
	sb.OrderBy("created_at ASC")
	sb.Limit(1)

	query, args := sb.Build()
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find client by match key")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up client")
	}

	return &client, nil
}

// Get retrieves a client by ID
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("clients")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("client %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get client")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get client")
	}

	return &client, nil
}

// Create inserts a new client assembled from an imported row. The record
// starts with times_imported = 1 so cleanup tooling can tell imported
// clients apart from manually entered ones.
func (r *Repository) Create(ctx context.Context, tenantID string, fields models.ClientFields) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	client := &models.Client{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		TimesImported: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	fields.MergeInto(client)
	client.NormalizedEmail = normalizers.NormalizeEmail(client.BestEmail())
	client.NormalizedPhone = normalizers.NormalizePhone(client.BestPhone())

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("clients")
	sb.Cols("id", "tenant_id", "name", "client_id", "home_email", "work_email", "personal_email", "other_email", "home_phone", "work_phone", "cellular_phone", "other_phone", "status", "tags", "normalized_email", "normalized_phone", "times_imported", "created_at", "updated_at")
	sb.Values(client.ID, client.TenantID, client.Name, client.ClientID, client.HomeEmail, client.WorkEmail, client.PersonalEmail, client.OtherEmail, client.HomePhone, client.WorkPhone, client.CellularPhone, client.OtherPhone, client.Status, client.Tags, client.NormalizedEmail, client.NormalizedPhone, client.TimesImported, client.CreatedAt, client.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create client")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create client")
	}

	return client, nil
}

// Update merges the populated fields of an imported row into an existing
// client. Absent fields never null out existing data. Every update bumps
// times_imported.
func (r *Repository) Update(ctx context.Context, tenantID, id string, fields models.ClientFields) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "client.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	fields.MergeInto(existing)
	existing.NormalizedEmail = normalizers.NormalizeEmail(existing.BestEmail())
	existing.NormalizedPhone = normalizers.NormalizePhone(existing.BestPhone())
	existing.TimesImported++
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("clients")
	sb.Set(
		sb.Assign("name", existing.Name),
		sb.Assign("client_id", existing.ClientID),
		sb.Assign("home_email", existing.HomeEmail),
		sb.Assign("work_email", existing.WorkEmail),
		sb.Assign("personal_email", existing.PersonalEmail),
		sb.Assign("other_email", existing.OtherEmail),
		sb.Assign("home_phone", existing.HomePhone),
		sb.Assign("work_phone", existing.WorkPhone),
		sb.Assign("cellular_phone", existing.CellularPhone),
		sb.Assign("other_phone", existing.OtherPhone),
		sb.Assign("status", existing.Status),
		sb.Assign("tags", existing.Tags),
		sb.Assign("normalized_email", existing.NormalizedEmail),
		sb.Assign("normalized_phone", existing.NormalizedPhone),
		sb.Assign("times_imported", existing.TimesImported),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update client")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update client")
	}

	return existing, nil
}
