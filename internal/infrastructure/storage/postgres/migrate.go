package postgres

import (
	"context"
	"fmt"

	"majifix/internal/core/locale"
	"majifix/pkg/logger"
)

// migrations are idempotent DDL statements applied at startup. Localized and
// nested fields persist as jsonb; uniqueness of code and name is scoped to a
// jurisdiction, with NULL jurisdiction treated as its own scope.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jurisdictions (
		id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		deleted_at timestamptz,
		code text NOT NULL,
		name jsonb NOT NULL DEFAULT '{}'::jsonb,
		color text NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS jurisdictions_code_key
		ON jurisdictions (code) WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS priorities (
		id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		deleted_at timestamptz,
		jurisdiction_id uuid REFERENCES jurisdictions(id),
		code text NOT NULL,
		name jsonb NOT NULL DEFAULT '{}'::jsonb,
		color text NOT NULL DEFAULT '',
		weight integer NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS priorities_code_key
		ON priorities (COALESCE(jurisdiction_id, '00000000-0000-0000-0000-000000000000'::uuid), code)
		WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS service_groups (
		id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		deleted_at timestamptz,
		jurisdiction_id uuid REFERENCES jurisdictions(id),
		priority_id uuid REFERENCES priorities(id),
		code text NOT NULL,
		name jsonb NOT NULL DEFAULT '{}'::jsonb,
		color text NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS service_groups_code_key
		ON service_groups (COALESCE(jurisdiction_id, '00000000-0000-0000-0000-000000000000'::uuid), code)
		WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS service_types (
		id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		deleted_at timestamptz,
		code text NOT NULL,
		name jsonb NOT NULL DEFAULT '{}'::jsonb,
		color text NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS service_types_code_key
		ON service_types (code) WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS services (
		id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		deleted_at timestamptz,
		jurisdiction_id uuid REFERENCES jurisdictions(id),
		group_id uuid REFERENCES service_groups(id),
		type_id uuid REFERENCES service_types(id),
		priority_id uuid REFERENCES priorities(id),
		code text NOT NULL,
		name jsonb NOT NULL DEFAULT '{}'::jsonb,
		description jsonb NOT NULL DEFAULT '{}'::jsonb,
		color text NOT NULL DEFAULT '',
		sla jsonb NOT NULL DEFAULT '{}'::jsonb,
		flags jsonb NOT NULL DEFAULT '{}'::jsonb,
		is_default boolean NOT NULL DEFAULT false
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS services_code_key
		ON services (COALESCE(jurisdiction_id, '00000000-0000-0000-0000-000000000000'::uuid), code)
		WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS services_jurisdiction_idx ON services (jurisdiction_id)`,
	`CREATE INDEX IF NOT EXISTS services_external_idx ON services (((flags->>'external')::boolean))`,
}

// serviceNameIndexes builds one partial unique index per supported locale,
// since name uniqueness within a jurisdiction holds for every locale value.
func serviceNameIndexes(locales locale.Config) []string {
	supported := locales.Supported
	if len(supported) == 0 {
		supported = []string{locale.DefaultLocale}
	}

	stmts := make([]string, 0, len(supported))
	for _, code := range supported {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS services_name_%[1]s_key
		ON services (COALESCE(jurisdiction_id, '00000000-0000-0000-0000-000000000000'::uuid), (name->>'%[1]s'))
		WHERE deleted_at IS NULL AND name->>'%[1]s' IS NOT NULL`, code))
	}
	return stmts
}

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, tm *TxManager, locales locale.Config) error {
	stmts := append(append([]string{}, migrations...), serviceNameIndexes(locales)...)
	return tm.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := tm.GetQuerier(ctx)
		for _, stmt := range stmts {
			if _, err := querier.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
		}
		logger.Info(ctx, "schema migrated", "statements", len(stmts))
		return nil
	})
}
