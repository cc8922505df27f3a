// Package domain provides the generic entity-service framework: repository
// contracts, list filtering and the lifecycle hook registry.
package domain

import (
	"context"

	"majifix/internal/core/id"
	"majifix/internal/domain/filter"
)

// --- Filter & Pagination ---

// DefaultLimit is the page size applied when a list request carries none.
const DefaultLimit = 10

// ListFilter contains the filtering options understood by list operations.
type ListFilter struct {
	// Search performs a case-insensitive match on searchable fields
	Search string

	// Jurisdiction scopes results to one jurisdiction
	Jurisdiction *id.ID

	// External filters on flags.external
	External *bool

	// Filters holds arbitrary field conditions parsed from the
	// `filter` query parameter
	Filters []filter.Item

	// IncludeDeleted includes soft-deleted records
	IncludeDeleted bool

	// Pagination
	Limit int
	Skip  int
}

// DefaultListFilter returns the defaults applied to bare list requests.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: DefaultLimit}
}

// ListResult contains one page of results plus the total match count.
type ListResult[T any] struct {
	Items []T
	Total int64
	Limit int
	Skip  int
}

// --- Repository contract ---

// EntityRepository defines the persistence operations the generic entity
// service needs. Implementations exist for PostgreSQL and in-memory.
type EntityRepository[T any] interface {
	// Create inserts a new entity
	Create(ctx context.Context, entity T) error

	// Update replaces an existing entity
	Update(ctx context.Context, entity T) error

	// GetByID retrieves an entity by id; soft-deleted records are excluded
	GetByID(ctx context.Context, id id.ID) (T, error)

	// SoftDelete sets the deletion tombstone and returns the updated record
	SoftDelete(ctx context.Context, id id.ID) (T, error)

	// List retrieves entities with filtering and pagination
	List(ctx context.Context, filter ListFilter) (ListResult[T], error)
}

// --- Hooks ---

// HookEvent represents a lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at a specific lifecycle point.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping on first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeCreate registers a hook to run before create.
func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) { r.On(BeforeCreate, hook) }

// OnAfterCreate registers a hook to run after create.
func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T]) { r.On(AfterCreate, hook) }

// OnBeforeUpdate registers a hook to run before update.
func (r *HookRegistry[T]) OnBeforeUpdate(hook Hook[T]) { r.On(BeforeUpdate, hook) }

// OnAfterUpdate registers a hook to run after update.
func (r *HookRegistry[T]) OnAfterUpdate(hook Hook[T]) { r.On(AfterUpdate, hook) }

// OnBeforeDelete registers a hook to run before delete.
func (r *HookRegistry[T]) OnBeforeDelete(hook Hook[T]) { r.On(BeforeDelete, hook) }

// OnAfterDelete registers a hook to run after delete.
func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T]) { r.On(AfterDelete, hook) }
