package entity

import (
	"context"
	"time"

	"majifix/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants without database access.
type Validatable interface {
	// Validate checks entity invariants. Returns nil if valid, an AppError
	// with details otherwise.
	Validate(ctx context.Context) error
}

// Base contains the system-managed fields shared by all entities.
type Base struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// CreatedAt / UpdatedAt are maintained by the repositories
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// DeletedAt is the soft-delete tombstone; deleted records are excluded
	// from queries unless explicitly requested
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewBase creates a Base with a generated ID and current timestamps.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// MarkDeleted sets the soft-delete tombstone.
func (b *Base) MarkDeleted() {
	now := time.Now().UTC()
	b.DeletedAt = &now
}

// IsDeleted reports whether the tombstone is set.
func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil
}
