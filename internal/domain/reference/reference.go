// Package reference holds the collaborator entities a Service points at:
// Jurisdiction, ServiceGroup, Priority and ServiceType. They are maintained
// by sibling systems; this service only resolves them for existence checks,
// default derivation and response population.
package reference

import (
	"context"

	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
)

// Jurisdiction is an administrative region that scopes services, groups and
// priorities.
type Jurisdiction struct {
	entity.Base

	Code  string           `db:"code" json:"code"`
	Name  locale.Localized `db:"name" json:"name"`
	Color string           `db:"color" json:"color"`
}

// ServiceGroup is a category grouping related services, e.g. "Sanitation".
// Its jurisdiction and priority act as inheritance sources for services that
// do not set their own.
type ServiceGroup struct {
	entity.Base

	JurisdictionID *id.ID           `db:"jurisdiction_id" json:"jurisdiction,omitempty"`
	PriorityID     *id.ID           `db:"priority_id" json:"priority,omitempty"`
	Code           string           `db:"code" json:"code"`
	Name           locale.Localized `db:"name" json:"name"`
	Color          string           `db:"color" json:"color"`
}

// Priority represents the default urgency assigned to requests of a service.
type Priority struct {
	entity.Base

	JurisdictionID *id.ID           `db:"jurisdiction_id" json:"jurisdiction,omitempty"`
	Code           string           `db:"code" json:"code"`
	Name           locale.Localized `db:"name" json:"name"`
	Color          string           `db:"color" json:"color"`
	Weight         int              `db:"weight" json:"weight"`
}

// ServiceType is a namespace-scoped classification a service may carry.
type ServiceType struct {
	entity.Base

	Code  string           `db:"code" json:"code"`
	Name  locale.Localized `db:"name" json:"name"`
	Color string           `db:"color" json:"color"`
}

// Projection is the reduced shape references take when embedded in a Service
// response.
type Projection struct {
	ID    id.ID            `json:"id"`
	Code  string           `json:"code"`
	Name  locale.Localized `json:"name"`
	Color string           `json:"color"`
}

// Projection reduces a Jurisdiction for embedding.
func (j *Jurisdiction) Projection() *Projection {
	return &Projection{ID: j.ID, Code: j.Code, Name: j.Name, Color: j.Color}
}

// Projection reduces a ServiceGroup for embedding.
func (g *ServiceGroup) Projection() *Projection {
	return &Projection{ID: g.ID, Code: g.Code, Name: g.Name, Color: g.Color}
}

// Projection reduces a Priority for embedding.
func (p *Priority) Projection() *Projection {
	return &Projection{ID: p.ID, Code: p.Code, Name: p.Name, Color: p.Color}
}

// Projection reduces a ServiceType for embedding.
func (t *ServiceType) Projection() *Projection {
	return &Projection{ID: t.ID, Code: t.Code, Name: t.Name, Color: t.Color}
}

// Store resolves reference ids to their records. A not-found id surfaces as
// an apperror.CodeNotFound which callers translate to ReferenceNotFound.
type Store interface {
	GetJurisdiction(ctx context.Context, id id.ID) (*Jurisdiction, error)
	GetGroup(ctx context.Context, id id.ID) (*ServiceGroup, error)
	GetPriority(ctx context.Context, id id.ID) (*Priority, error)
	GetType(ctx context.Context, id id.ID) (*ServiceType, error)
}
