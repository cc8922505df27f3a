// Package reference_repo provides the PostgreSQL store for the reference
// entities a service points at.
package reference_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/domain/reference"
	"majifix/internal/infrastructure/storage/postgres"
)

// refTable is the per-table accessor shared by all four reference kinds.
type refTable[T any] struct {
	tm    *postgres.TxManager
	table string
	name  string
	cols  []string
}

func newRefTable[T any](tm *postgres.TxManager, table, name string) refTable[T] {
	return refTable[T]{
		tm:    tm,
		table: table,
		name:  name,
		cols:  postgres.ExtractDBColumns[T](),
	}
}

func (r *refTable[T]) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *refTable[T]) getOne(ctx context.Context, cond squirrel.Sqlizer, ref string) (*T, error) {
	q := r.builder().
		Select(r.cols...).
		From(r.table).
		Where(cond).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := new(T)
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.name, ref)
		}
		return nil, fmt.Errorf("get %s: %w", r.table, err)
	}
	return rec, nil
}

func (r *refTable[T]) getByID(ctx context.Context, refID id.ID) (*T, error) {
	return r.getOne(ctx, squirrel.Eq{"id": refID}, refID.String())
}

func (r *refTable[T]) getByCode(ctx context.Context, code string) (*T, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

// upsert matches an existing row by code and replaces it, inserting
// otherwise. Seeding only, so a select-then-write race is acceptable.
func (r *refTable[T]) upsert(ctx context.Context, rec *T, code string) error {
	data := postgres.StructToMap(rec)
	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	existing, err := r.getByCode(ctx, code)
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	querier := r.tm.GetQuerier(ctx)

	if existing == nil {
		q := r.builder().Insert(r.table).SetMap(filtered)
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert %s: %w", r.table, err)
		}
		return nil
	}

	existingData := postgres.StructToMap(existing)
	delete(filtered, "id")
	delete(filtered, "created_at")
	q := r.builder().
		Update(r.table).
		SetMap(filtered).
		Where(squirrel.Eq{"id": existingData["id"]})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	return nil
}

// Store implements reference.Store on PostgreSQL.
type Store struct {
	jurisdictions refTable[reference.Jurisdiction]
	groups        refTable[reference.ServiceGroup]
	priorities    refTable[reference.Priority]
	types         refTable[reference.ServiceType]
}

var _ reference.Store = (*Store)(nil)

// New creates the store.
func New(tm *postgres.TxManager) *Store {
	return &Store{
		jurisdictions: newRefTable[reference.Jurisdiction](tm, "jurisdictions", "Jurisdiction"),
		groups:        newRefTable[reference.ServiceGroup](tm, "service_groups", "ServiceGroup"),
		priorities:    newRefTable[reference.Priority](tm, "priorities", "Priority"),
		types:         newRefTable[reference.ServiceType](tm, "service_types", "ServiceType"),
	}
}

// GetJurisdiction retrieves a jurisdiction by id.
func (s *Store) GetJurisdiction(ctx context.Context, refID id.ID) (*reference.Jurisdiction, error) {
	return s.jurisdictions.getByID(ctx, refID)
}

// GetGroup retrieves a service group by id.
func (s *Store) GetGroup(ctx context.Context, refID id.ID) (*reference.ServiceGroup, error) {
	return s.groups.getByID(ctx, refID)
}

// GetPriority retrieves a priority by id.
func (s *Store) GetPriority(ctx context.Context, refID id.ID) (*reference.Priority, error) {
	return s.priorities.getByID(ctx, refID)
}

// GetType retrieves a service type by id.
func (s *Store) GetType(ctx context.Context, refID id.ID) (*reference.ServiceType, error) {
	return s.types.getByID(ctx, refID)
}

// GetJurisdictionByCode retrieves a jurisdiction by code.
func (s *Store) GetJurisdictionByCode(ctx context.Context, code string) (*reference.Jurisdiction, error) {
	return s.jurisdictions.getByCode(ctx, code)
}

// GetGroupByCode retrieves a service group by code.
func (s *Store) GetGroupByCode(ctx context.Context, code string) (*reference.ServiceGroup, error) {
	return s.groups.getByCode(ctx, code)
}

// GetPriorityByCode retrieves a priority by code.
func (s *Store) GetPriorityByCode(ctx context.Context, code string) (*reference.Priority, error) {
	return s.priorities.getByCode(ctx, code)
}

// UpsertJurisdiction inserts or refreshes a jurisdiction, matched by code.
func (s *Store) UpsertJurisdiction(ctx context.Context, rec *reference.Jurisdiction) error {
	return s.jurisdictions.upsert(ctx, rec, rec.Code)
}

// UpsertGroup inserts or refreshes a service group, matched by code.
func (s *Store) UpsertGroup(ctx context.Context, rec *reference.ServiceGroup) error {
	return s.groups.upsert(ctx, rec, rec.Code)
}

// UpsertPriority inserts or refreshes a priority, matched by code.
func (s *Store) UpsertPriority(ctx context.Context, rec *reference.Priority) error {
	return s.priorities.upsert(ctx, rec, rec.Code)
}

// UpsertType inserts or refreshes a service type, matched by code.
func (s *Store) UpsertType(ctx context.Context, rec *reference.ServiceType) error {
	return s.types.upsert(ctx, rec, rec.Code)
}
