// Package resolver decides create/update/skip for incoming rows against
// the existing client database
package resolver

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ClientFinder looks up an existing client by normalized match keys.
// A nil client with a nil error means no match. When multiple records
// match, the implementation must return the earliest-created one.
type ClientFinder interface {
	FindByNormalizedEmailOrPhone(ctx context.Context, tenantID, email, phone string) (*models.Client, error)
}

// Resolution is the outcome of resolving one row
type Resolution struct {
	Action   models.RowAction
	Existing *models.Client
}

// Resolver matches candidate records against the client store
type Resolver struct {
	clients ClientFinder
	logger  ectologger.Logger
}

// New creates a new Resolver
func New(clients ClientFinder, logger ectologger.Logger) *Resolver {
	return &Resolver{
		clients: clients,
		logger:  logger,
	}
}

// Resolve matches a candidate record by normalized email or phone and
// applies the job's duplicate strategy. Every row is resolved against the
// database state prior to the job; rows within one file are never deduped
// against each other.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, fields models.ClientFields, strategy models.DuplicateStrategy) (*Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Resolve")
	defer span.End()

	// create_new never needs a lookup
	if strategy == models.StrategyCreateNew {
		return &Resolution{Action: models.RowActionCreate}, nil
	}

	email := normalizers.NormalizeEmail(fields.BestEmail())
	phone := normalizers.NormalizePhone(fields.BestPhone())

	var existing *models.Client
	if email != "" || phone != "" {
		var err error
		existing, err = r.clients.FindByNormalizedEmailOrPhone(ctx, tenantID, email, phone)
		if err != nil {
			return nil, err
		}
	}

	if existing == nil {
		return &Resolution{Action: models.RowActionCreate}, nil
	}

	switch strategy {
	case models.StrategySkip:
		return &Resolution{Action: models.RowActionSkip, Existing: existing}, nil
	case models.StrategyUpdate:
		return &Resolution{Action: models.RowActionUpdate, Existing: existing}, nil
	default:
		return &Resolution{Action: models.RowActionCreate}, nil
	}
}
