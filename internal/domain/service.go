package domain

import (
	"context"
	"fmt"

	"majifix/internal/core/apperror"
	"majifix/internal/core/entity"
	"majifix/internal/core/id"
)

// EntityService provides the generic create/list/get/update/delete lifecycle
// shared by all entities. Domain-specific rules attach through the hook
// registry: before-hooks run ahead of invariant validation so they can derive
// defaults the validation then checks.
type EntityService[T entity.Validatable] struct {
	repo  EntityRepository[T]
	hooks *HookRegistry[T]

	// entityName for error messages
	entityName string
}

// EntityServiceConfig configures the entity service.
type EntityServiceConfig[T entity.Validatable] struct {
	Repo       EntityRepository[T]
	EntityName string
}

// NewEntityService creates a new entity service.
func NewEntityService[T entity.Validatable](cfg EntityServiceConfig[T]) *EntityService[T] {
	return &EntityService[T]{
		repo:       cfg.Repo,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
}

// Hooks returns the hook registry for rule registration.
func (s *EntityService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *EntityService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *EntityService[T]) normalizeGetErr(err error, idOrCode any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, idOrCode)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", idOrCode)
}

// Create runs the before-create hooks, validates invariants and persists the
// entity.
func (s *EntityService[T]) Create(ctx context.Context, e T) error {
	// Hooks first: default derivation must happen before required-field
	// checks so a derivable code/jurisdiction does not fail validation.
	if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
		return err
	}

	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("create %s: %w", s.entityName, err))
	}

	return s.hooks.Run(ctx, AfterCreate, e)
}

// GetByID retrieves an entity by id.
func (s *EntityService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID.String())
	}
	return e, nil
}

// Update runs the before-update hooks, validates invariants and persists the
// modified entity.
func (s *EntityService[T]) Update(ctx context.Context, e T) error {
	if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
		return err
	}

	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	if err := s.repo.Update(ctx, e); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("update %s: %w", s.entityName, err))
	}

	return s.hooks.Run(ctx, AfterUpdate, e)
}

// Delete soft-deletes an entity after the before-delete hooks permit it, and
// returns the deleted record.
func (s *EntityService[T]) Delete(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID.String())
	}

	if err := s.hooks.Run(ctx, BeforeDelete, e); err != nil {
		return e, err
	}

	deleted, err := s.repo.SoftDelete(ctx, entityID)
	if err != nil {
		return deleted, s.normalizeGetErr(err, entityID.String())
	}

	if err := s.hooks.Run(ctx, AfterDelete, deleted); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// List retrieves entities with filtering.
func (s *EntityService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	return s.repo.List(ctx, filter)
}
