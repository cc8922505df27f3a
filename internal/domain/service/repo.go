package service

import (
	"context"

	"majifix/internal/core/id"
	"majifix/internal/domain"
	"majifix/internal/domain/filter"
)

// Criteria describes what GetOneOrDefault should try to match. The lookup is
// a single query combining the id, the filters and the default marker with OR,
// resolved in that order of preference.
type Criteria struct {
	// ID matches an exact record when set
	ID *id.ID

	// Filters are arbitrary field conditions, combined with AND among
	// themselves
	Filters []filter.Item
}

// IsZero reports whether the criteria carries no conditions at all.
func (c Criteria) IsZero() bool {
	return c.ID == nil && len(c.Filters) == 0
}

// Repository is the persistence contract for services. Both the PostgreSQL
// and the in-memory implementations enforce code and name uniqueness within a
// jurisdiction, surfacing violations as apperror.CodeDuplicate.
type Repository interface {
	domain.EntityRepository[*Service]

	// GetOneOrDefault finds the best match for the criteria: the record
	// with the given id, else one matching the filters, else the default
	// service. Returns CodeNotFound when none of the three exists.
	GetOneOrDefault(ctx context.Context, criteria Criteria) (*Service, error)

	// FindByCode returns the non-deleted service with the given code in a
	// jurisdiction (nil jurisdiction matches unscoped services). Returns
	// CodeNotFound when absent. Used by the seeder for upserts.
	FindByCode(ctx context.Context, jurisdiction *id.ID, code string) (*Service, error)

	// CountDependents counts service requests that reference the service.
	// A deployment without the service request schema reports zero.
	CountDependents(ctx context.Context, serviceID id.ID) (int64, error)
}
