// Package service_repo provides the PostgreSQL repository for services.
package service_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/domain"
	"majifix/internal/domain/filter"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/storage/postgres"
)

const tableName = "services"

// PostgreSQL error codes surfaced as domain errors.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// Repo implements service.Repository on PostgreSQL.
type Repo struct {
	tm         *postgres.TxManager
	selectCols []string
}

// New creates the repository.
func New(tm *postgres.TxManager) *Repo {
	return &Repo{
		tm:         tm,
		selectCols: postgres.ExtractDBColumns[service.Service](),
	}
}

var _ service.Repository = (*Repo)(nil)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(tableName)
}

func (r *Repo) rowData(s *service.Service) map[string]any {
	data := postgres.StructToMap(s)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered
}

// mapWriteErr translates constraint violations. The partial unique indexes on
// (jurisdiction, code) and the per-locale (jurisdiction, name) set all
// surface as 23505.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		field := "code"
		if strings.Contains(pgErr.ConstraintName, "name") {
			field = "name"
		}
		return apperror.NewDuplicate(service.ModelName, field).WithCause(err)
	}
	return err
}

// Create inserts a new service using its "db" tags.
func (r *Repo) Create(ctx context.Context, s *service.Service) error {
	q := r.Builder().
		Insert(tableName).
		SetMap(r.rowData(s))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return mapWriteErr(fmt.Errorf("insert %s: %w", tableName, err))
	}
	return nil
}

// Update replaces a non-deleted service.
func (r *Repo) Update(ctx context.Context, s *service.Service) error {
	data := r.rowData(s)
	delete(data, "id")
	delete(data, "created_at")

	q := r.Builder().
		Update(tableName).
		SetMap(data).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return mapWriteErr(fmt.Errorf("update %s: %w", tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(service.ModelName, s.ID.String())
	}
	return nil
}

// GetByID retrieves a non-deleted service by id.
func (r *Repo) GetByID(ctx context.Context, serviceID id.ID) (*service.Service, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": serviceID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	return r.findOne(ctx, q, serviceID.String())
}

func (r *Repo) findOne(ctx context.Context, q squirrel.SelectBuilder, ref string) (*service.Service, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s := &service.Service{}
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(service.ModelName, ref)
		}
		return nil, fmt.Errorf("get %s: %w", tableName, err)
	}
	return s, nil
}

// SoftDelete sets the tombstone and returns the updated record.
func (r *Repo) SoftDelete(ctx context.Context, serviceID id.ID) (*service.Service, error) {
	q := r.Builder().
		Update(tableName).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": serviceID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Suffix("RETURNING " + strings.Join(r.selectCols, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build soft delete: %w", err)
	}

	s := &service.Service{}
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(service.ModelName, serviceID.String())
		}
		return nil, fmt.Errorf("soft delete %s: %w", tableName, err)
	}
	return s, nil
}

// List retrieves services with filtering and pagination. A negative limit
// disables pagination.
func (r *Repo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*service.Service], error) {
	result := domain.ListResult[*service.Service]{
		Limit: f.Limit,
		Skip:  f.Skip,
	}

	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.Expr("name::text ILIKE ?", pattern),
			squirrel.Expr("description::text ILIKE ?", pattern),
		})
	}
	if f.Jurisdiction != nil {
		q = q.Where(squirrel.Eq{"jurisdiction_id": *f.Jurisdiction})
	}
	if f.External != nil {
		q = q.Where(squirrel.Expr("COALESCE((flags->>'external')::boolean, false) = ?", *f.External))
	}

	conj, err := r.filterConjunction(f.Filters)
	if err != nil {
		return result, err
	}
	if len(conj) > 0 {
		q = q.Where(conj)
	}

	// Count before pagination
	countQ := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Skip > 0 {
		q = q.Offset(uint64(f.Skip))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// filterConjunction converts filter items into an AND predicate. Columns are
// whitelisted against the select list.
func (r *Repo) filterConjunction(items []filter.Item) (squirrel.And, error) {
	validCols := make(map[string]bool, len(r.selectCols))
	for _, col := range r.selectCols {
		validCols[col] = true
	}

	var conj squirrel.And
	for _, item := range items {
		if !validCols[item.Field] {
			return nil, apperror.NewValidation("invalid filter column").
				WithDetail("field", item.Field)
		}

		switch item.Operator {
		case filter.Equal:
			conj = append(conj, squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual:
			conj = append(conj, squirrel.NotEq{item.Field: item.Value})
		case filter.Less:
			conj = append(conj, squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			conj = append(conj, squirrel.Gt{item.Field: item.Value})
		case filter.LessOrEqual:
			conj = append(conj, squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			conj = append(conj, squirrel.GtOrEq{item.Field: item.Value})
		case filter.InList:
			conj = append(conj, squirrel.Eq{item.Field: item.Value})
		case filter.Contains:
			val := fmt.Sprintf("%%%v%%", item.Value)
			conj = append(conj, squirrel.Expr(item.Field+"::text ILIKE ?", val))
		case filter.IsNull:
			conj = append(conj, squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			conj = append(conj, squirrel.NotEq{item.Field: nil})
		default:
			return nil, apperror.NewValidation("invalid filter operator").
				WithDetail("operator", string(item.Operator))
		}
	}
	return conj, nil
}

// GetOneOrDefault finds the best match in one query: the id match wins, then
// the filter match, then the default service.
func (r *Repo) GetOneOrDefault(ctx context.Context, c service.Criteria) (*service.Service, error) {
	var ors squirrel.Or
	var rankCases []string
	var rankArgs []any

	if c.ID != nil {
		ors = append(ors, squirrel.Eq{"id": *c.ID})
		rankCases = append(rankCases, "WHEN id = ? THEN 0")
		rankArgs = append(rankArgs, *c.ID)
	}
	if len(c.Filters) > 0 {
		conj, err := r.filterConjunction(c.Filters)
		if err != nil {
			return nil, err
		}
		conjSQL, conjArgs, err := conj.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build criteria: %w", err)
		}
		ors = append(ors, conj)
		rankCases = append(rankCases, "WHEN ("+conjSQL+") THEN 1")
		rankArgs = append(rankArgs, conjArgs...)
	}
	ors = append(ors, squirrel.Eq{"is_default": true})
	rankCases = append(rankCases, "WHEN is_default THEN 2")

	rank := "CASE " + strings.Join(rankCases, " ") + " ELSE 3 END"

	q := r.baseSelect().
		Where(squirrel.Eq{"deleted_at": nil}).
		Where(ors).
		OrderByClause(squirrel.Expr(rank, rankArgs...)).
		Limit(1)

	return r.findOne(ctx, q, "matching criteria or default")
}

// FindByCode returns the service with the given code within a jurisdiction.
func (r *Repo) FindByCode(ctx context.Context, jurisdiction *id.ID, code string) (*service.Service, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"code": code}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	if jurisdiction != nil {
		q = q.Where(squirrel.Eq{"jurisdiction_id": *jurisdiction})
	} else {
		q = q.Where(squirrel.Eq{"jurisdiction_id": nil})
	}

	return r.findOne(ctx, q, code)
}

// CountDependents counts service requests referencing the service. The
// requests table belongs to a sibling system; a deployment without it reports
// zero dependents.
func (r *Repo) CountDependents(ctx context.Context, serviceID id.ID) (int64, error) {
	q := r.Builder().
		Select("COUNT(*)").
		From("service_requests").
		Where(squirrel.Eq{"service_id": serviceID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build dependents count: %w", err)
	}

	var count int64
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
			return 0, nil
		}
		return 0, fmt.Errorf("count dependents: %w", err)
	}
	return count, nil
}
