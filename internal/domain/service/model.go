// Package service implements the Service aggregate: an acceptable service
// (request type), e.g. "Water Leakage", offered or handled by a specific
// jurisdiction.
package service

import (
	"context"

	"majifix/internal/core/apperror"
	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
)

// ModelName is the entity name used in error messages.
const ModelName = "Service"

// Sla captures the service level agreement for a service.
type Sla struct {
	// TTR is the time, in hours, required to resolve a request
	TTR float64 `json:"ttr"`
}

// Flags marks special requirements or treatments for a service.
type Flags struct {
	// External flags a service reportable via public channels
	// (mobile app, USSD, public website)
	External bool `json:"external"`

	// Account flags a service requiring a customer account,
	// e.g. billing requests
	Account bool `json:"account"`
}

// Service represents an acceptable service (request type) offered by a
// jurisdiction. Reference fields persist as bare ids; the projection fields
// carry the populated form on responses.
type Service struct {
	entity.Base

	// References. A nil jurisdiction means the service applies to all
	// jurisdictions; group is required.
	JurisdictionID *id.ID `db:"jurisdiction_id" json:"-"`
	GroupID        *id.ID `db:"group_id" json:"-"`
	TypeID         *id.ID `db:"type_id" json:"-"`
	PriorityID     *id.ID `db:"priority_id" json:"-"`

	// Code uniquely identifies the service within its jurisdiction and is
	// used to derive service request codes. Uppercase; auto-derived from
	// the name when not supplied.
	Code string `db:"code" json:"code"`

	// Name is the localized human readable name, e.g. Water Leakage
	Name locale.Localized `db:"name" json:"name"`

	// Description is the localized long-form explanation
	Description locale.Localized `db:"description" json:"description,omitempty"`

	// Color differentiates the service visually; random default
	Color string `db:"color" json:"color"`

	Sla   Sla   `db:"sla" json:"sla"`
	Flags Flags `db:"flags" json:"flags"`

	// Default marks this service as the jurisdiction/system fallback
	Default bool `db:"is_default" json:"default"`

	// Populated projections (not persisted)
	Jurisdiction *reference.Projection `db:"-" json:"jurisdiction,omitempty"`
	Group        *reference.Projection `db:"-" json:"group,omitempty"`
	Type         *reference.Projection `db:"-" json:"type,omitempty"`
	Priority     *reference.Projection `db:"-" json:"priority,omitempty"`
}

// New creates a Service with generated id and timestamps.
func New() *Service {
	return &Service{Base: entity.NewBase()}
}

// Validate implements entity.Validatable. It runs after the derivation
// pipeline, so a derivable code failing this check means the name was empty
// too.
func (s *Service) Validate(ctx context.Context) error {
	if s.GroupID == nil {
		return apperror.NewValidation("group is required").
			WithDetail("field", "group")
	}

	if s.Name.IsEmpty() {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if s.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}

	return nil
}
